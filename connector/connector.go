// Package connector holds the sources that feed a window and the decoders they share.
package connector

import (
	"context"

	"github.com/RuiFG/streaming/streaming-unique/element"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Source emits events until its input is exhausted or ctx is done.
type Source[T any] interface {
	Run(ctx context.Context, emit element.Emit[T]) error
}

// FormatFn decodes one raw message.
type FormatFn[T any] func(data []byte) (T, error)

// DecodeJSON decodes a flat JSON object into a Record. Attributes declared in
// schema are coerced to their declared type, the others keep their JSON type.
func DecodeJSON(schema element.Schema) FormatFn[element.Record] {
	return func(data []byte) (element.Record, error) {
		if !gjson.ValidBytes(data) {
			return nil, errors.Errorf("invalid json %q", data)
		}
		result := gjson.ParseBytes(data)
		if !result.IsObject() {
			return nil, errors.Errorf("json %q is not an object", data)
		}
		record := element.Record{}
		result.ForEach(func(key, value gjson.Result) bool {
			if value.Type != gjson.Null {
				record[key.String()] = value.Value()
			}
			return true
		})
		return schema.Conform(record)
	}
}
