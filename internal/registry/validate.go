package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/vk/coingraph/internal/config"
	"github.com/vk/coingraph/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// ctyValueType is the reflect.Type of cty.Value, used for handler signature checks.
var ctyValueType = reflect.TypeOf(cty.Value{})

// errorType is the reflect.Type of the error interface.
var errorType = reflect.TypeOf((*error)(nil)).Elem()

// contextType is the reflect.Type of the context.Context interface.
var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()

// Validate performs a strict parity check between each agent's declared
// inputs and its Go input struct, and verifies handler signatures. It is run
// once at startup; a failure here is a programmer error in a module.
func (r *Registry) Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	for agentType, agent := range r.Agents {
		if agent.Fn == nil {
			errs = append(errs, fmt.Sprintf("agent '%s': no handler function registered", agentType))
			continue
		}
		if err := checkHandlerSignature(agent.Fn); err != nil {
			errs = append(errs, fmt.Sprintf("agent '%s': %v", agentType, err))
		}
		errs = append(errs, checkInputParity(agentType, agent.InputType, agent.Inputs)...)
		logger.Debug("Validated agent type.", "type", agentType)
	}

	for assetType, asset := range r.Assets {
		if asset.CreateFn == nil {
			errs = append(errs, fmt.Sprintf("asset '%s': no create handler registered", assetType))
		}
		if asset.DestroyFn == nil {
			errs = append(errs, fmt.Sprintf("asset '%s': no destroy handler registered", assetType))
		}
		errs = append(errs, checkInputParity(assetType, asset.InputType, asset.Inputs)...)
		logger.Debug("Validated asset type.", "type", assetType)
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// checkHandlerSignature verifies that an agent handler has the shape
// func(context.Context, *Deps, *Input) (cty.Value, error).
func checkHandlerSignature(fn any) error {
	t := reflect.TypeOf(fn)
	if t.Kind() != reflect.Func {
		return fmt.Errorf("handler is not a function")
	}
	if t.NumIn() != 3 || t.NumOut() != 2 {
		return fmt.Errorf("handler must be func(ctx, deps, input) (cty.Value, error)")
	}
	if !t.In(0).Implements(contextType) {
		return fmt.Errorf("handler's first parameter must be context.Context")
	}
	if t.Out(0) != ctyValueType {
		return fmt.Errorf("handler's first return value must be cty.Value")
	}
	if t.Out(1) != errorType {
		return fmt.Errorf("handler's second return value must be error")
	}
	return nil
}

// checkInputParity cross-checks declared inputs against the `hcl` tags of the
// Go input struct, in both directions.
func checkInputParity(typeName string, inputType reflect.Type, declared map[string]*config.InputDefinition) []string {
	var errs []string

	if inputType == nil {
		if len(declared) > 0 {
			errs = append(errs, fmt.Sprintf("'%s' declares inputs but has no Go input struct", typeName))
		}
		return errs
	}

	goInputs := make(map[string]struct{})
	for i := 0; i < inputType.NumField(); i++ {
		field := inputType.Field(i)
		if !field.IsExported() {
			continue
		}
		tagName := strings.Split(field.Tag.Get("hcl"), ",")[0]
		if tagName != "" && tagName != "-" {
			goInputs[tagName] = struct{}{}
		}
	}

	for name := range goInputs {
		if _, ok := declared[name]; !ok {
			errs = append(errs, fmt.Sprintf("'%s': Go struct has field for input '%s' which is not declared", typeName, name))
		}
	}
	for name := range declared {
		if _, ok := goInputs[name]; !ok {
			errs = append(errs, fmt.Sprintf("'%s': declares input '%s' which has no tagged Go struct field", typeName, name))
		}
	}
	return errs
}
