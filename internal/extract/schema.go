package extract

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/vision.json
var visionSchemaJSON []byte

var (
	visionSchema     *jsonschema.Schema
	visionSchemaErr  error
	visionSchemaOnce sync.Once
)

func compiledVisionSchema() (*jsonschema.Schema, error) {
	visionSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("vision.json", bytes.NewReader(visionSchemaJSON)); err != nil {
			visionSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		visionSchema, visionSchemaErr = compiler.Compile("vision.json")
		if visionSchemaErr != nil {
			visionSchemaErr = fmt.Errorf("compile schema: %w", visionSchemaErr)
		}
	})
	return visionSchema, visionSchemaErr
}

// ValidateVisionJSON checks a vision model payload against the embedded
// output schema.
func ValidateVisionJSON(data []byte) error {
	schema, err := compiledVisionSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal vision output: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("vision output does not match schema: %w", err)
	}
	return nil
}
