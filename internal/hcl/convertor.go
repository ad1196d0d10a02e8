package hcl

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/coingraph/internal/config"
	"github.com/vk/coingraph/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Converter evaluates HCL argument expressions, applies declared defaults and
// populates a handler's typed input struct using reflection.
type Converter struct{}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{}
}

// DecodeBody populates inputStruct from the given argument expressions. Field
// names are looked up via the `hcl` struct tag. Arguments not provided by the
// user fall back to the declared default; a missing required argument is an
// error.
func (c *Converter) DecodeBody(
	ctx context.Context,
	inputStruct any,
	args map[string]hcl.Expression,
	defs map[string]*config.InputDefinition,
	evalCtx *hcl.EvalContext,
) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Decoding argument body.")

	structVal := reflect.ValueOf(inputStruct)
	if structVal.Kind() != reflect.Ptr || structVal.IsNil() {
		return fmt.Errorf("inputStruct must be a non-nil pointer")
	}
	structVal = structVal.Elem()
	structType := structVal.Type()

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		fieldVal := structVal.Field(i)
		if !fieldVal.CanSet() {
			continue
		}

		lookupName := strings.Split(field.Tag.Get("hcl"), ",")[0]
		if lookupName == "" || lookupName == "-" {
			continue
		}

		inputDef, defExists := defs[lookupName]
		if !defExists {
			continue
		}

		targetPtr := fieldVal.Addr().Interface()
		argExpr, argProvided := args[lookupName]

		if argProvided {
			val, diags := argExpr.Value(evalCtx)
			if diags.HasErrors() {
				return fmt.Errorf("failed to evaluate argument %q: %w", lookupName, diags)
			}
			if err := c.decode(val, targetPtr); err != nil {
				return fmt.Errorf("failed to decode argument %q: %w", lookupName, err)
			}
			continue
		}

		if inputDef.Default != nil {
			if err := c.decode(*inputDef.Default, targetPtr); err != nil {
				return fmt.Errorf("failed to apply default for %q: %w", lookupName, err)
			}
			continue
		}
		if !inputDef.Optional {
			return fmt.Errorf("missing required argument %q", lookupName)
		}
	}

	return nil
}

// decode converts a single cty value into the Go value behind targetPtr,
// converting to the implied cty type of the target first.
func (c *Converter) decode(val cty.Value, targetPtr any) error {
	target := reflect.ValueOf(targetPtr).Elem()

	wantType, err := gocty.ImpliedType(target.Interface())
	if err != nil {
		return fmt.Errorf("cannot imply cty type for Go type %s: %w", target.Type(), err)
	}

	converted, err := convert.Convert(val, wantType)
	if err != nil {
		return fmt.Errorf("cannot convert %s to %s: %w", val.Type().FriendlyName(), wantType.FriendlyName(), err)
	}
	if converted.IsNull() {
		// Leave the zero value in place for null arguments.
		return nil
	}

	return gocty.FromCtyValue(converted, targetPtr)
}
