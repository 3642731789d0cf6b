// Package selector compiles unique.key expressions into key selectors for
// window.Processor.
package selector

import (
	"reflect"
	"strings"

	"github.com/RuiFG/streaming/streaming-unique/common/safe"
	"github.com/RuiFG/streaming/streaming-unique/element"
	"github.com/RuiFG/streaming/streaming-unique/window"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

type Selector struct {
	expression string
	program    *vm.Program
}

// Compile builds a selector from expression. With a schema the expression is
// type checked against the declared attributes and its result type must be a
// supported key type; without one, attributes are resolved at evaluation time.
func Compile(expression string, schema element.Schema) (*Selector, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, errors.WithMessage(window.ErrInvalidConfiguration, "unique.key is required")
	}
	var (
		options []expr.Option
		sample  map[string]any
	)
	if len(schema) > 0 {
		sample = make(map[string]any, len(schema))
		for name, attributeType := range schema {
			sample[name] = attributeType.Zero()
		}
		options = append(options, expr.Env(sample))
	} else {
		options = append(options, expr.AllowUndefinedVariables())
	}
	program, err := expr.Compile(expression, options...)
	if err != nil {
		return nil, errors.WithMessagef(window.ErrInvalidConfiguration, "malformed unique.key %q: %v", expression, err)
	}
	if sample != nil {
		// evaluation over zero values may legitimately fail, only a successful
		// sample says anything about the result type
		if value, err := expr.Run(program, sample); err == nil && value != nil && !supported(value) {
			return nil, errors.WithMessagef(window.ErrInvalidConfiguration,
				"unique.key %q yields unsupported type %T", expression, value)
		}
	}
	return &Selector{expression: expression, program: program}, nil
}

func (s *Selector) Expression() string {
	return s.expression
}

// Select evaluates the expression against record and coerces the result into
// the string key used for uniqueness.
func (s *Selector) Select(record element.Record) (key string, err error) {
	var value any
	if err = safe.Run(func() (runErr error) {
		value, runErr = expr.Run(s.program, map[string]any(record))
		return runErr
	}); err != nil {
		return "", errors.WithMessagef(window.ErrKeyExtraction, "evaluate %q: %v", s.expression, err)
	}
	if value == nil {
		return "", errors.WithMessagef(window.ErrKeyExtraction, "%q evaluated to nil", s.expression)
	}
	if !supported(value) {
		return "", errors.WithMessagef(window.ErrKeyExtraction, "%q evaluated to unsupported type %T", s.expression, value)
	}
	if key, err = cast.ToStringE(value); err != nil {
		return "", errors.WithMessagef(window.ErrKeyExtraction, "coerce %v to key: %v", value, err)
	}
	return key, nil
}

func supported(value any) bool {
	switch reflect.TypeOf(value).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Bool, reflect.String:
		return true
	default:
		return false
	}
}
