package element

import (
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// Record is an attribute-decoded event payload.
type Record map[string]any

type AttributeType string

const (
	Int    AttributeType = "int"
	Long   AttributeType = "long"
	Float  AttributeType = "float"
	Double AttributeType = "double"
	Bool   AttributeType = "bool"
	String AttributeType = "string"
)

func ParseAttributeType(s string) (AttributeType, error) {
	switch t := AttributeType(s); t {
	case Int, Long, Float, Double, Bool, String:
		return t, nil
	default:
		return "", errors.Errorf("unsupported attribute type %q", s)
	}
}

// Zero returns a value of the Go type backing t, used to type expression environments.
func (t AttributeType) Zero() any {
	switch t {
	case Int:
		return int(0)
	case Long:
		return int64(0)
	case Float:
		return float32(0)
	case Double:
		return float64(0)
	case Bool:
		return false
	default:
		return ""
	}
}

// Schema declares the attribute types of a stream.
type Schema map[string]AttributeType

// Conform coerces the declared attributes of record in place.
// Undeclared attributes are left untouched, nil values stay nil.
func (s Schema) Conform(record Record) (Record, error) {
	for name, attributeType := range s {
		value, ok := record[name]
		if !ok || value == nil {
			continue
		}
		var (
			coerced any
			err     error
		)
		switch attributeType {
		case Int:
			coerced, err = cast.ToIntE(value)
		case Long:
			coerced, err = cast.ToInt64E(value)
		case Float:
			coerced, err = cast.ToFloat32E(value)
		case Double:
			coerced, err = cast.ToFloat64E(value)
		case Bool:
			coerced, err = cast.ToBoolE(value)
		case String:
			coerced, err = cast.ToStringE(value)
		}
		if err != nil {
			return record, errors.WithMessagef(err, "attribute %s is not a %s", name, attributeType)
		}
		record[name] = coerced
	}
	return record, nil
}
