// Package schema validates tool arguments against each tool's declared
// JSON schema before dispatch.
package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Validator checks JSON argument strings against tool input schemas.
// Compiled schemas are cached, keyed by their JSON form.
type Validator struct {
	cache sync.Map // map[string]*gojsonschema.Schema
}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks argsJSON against schemaData (a map, a JSON string, or
// any marshalable value). A nil schema accepts everything.
func (v *Validator) Validate(schemaData any, argsJSON string) error {
	if schemaData == nil {
		return nil
	}
	compiled, err := v.compile(schemaData)
	if err != nil {
		return fmt.Errorf("invalid schema definition: %w", err)
	}

	result, err := compiled.Validate(gojsonschema.NewStringLoader(argsJSON))
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	errs := result.Errors()
	msg := errs[0].String()
	if len(errs) > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(errs)-1)
	}
	return fmt.Errorf("arguments do not match schema: %s", msg)
}

func (v *Validator) compile(schemaData any) (*gojsonschema.Schema, error) {
	jsonBytes, err := json.Marshal(schemaData)
	if err != nil {
		return nil, err
	}
	key := string(jsonBytes)
	if cached, ok := v.cache.Load(key); ok {
		return cached.(*gojsonschema.Schema), nil
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(jsonBytes))
	if err != nil {
		return nil, err
	}
	v.cache.Store(key, compiled)
	return compiled, nil
}
