package features

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const recordSchemaURL = "raw_record.schema.json"

var recordSchema = mustCompileRecordSchema()

// recordSchemaMap describes the accepted shape of a raw record. Numeric fields
// carry no range limits; codes outside the survey's range are still scored.
func recordSchemaMap() map[string]any {
	props := make(map[string]any, len(RequiredFields))
	for _, name := range RequiredFields {
		props[name] = map[string]any{"type": "number"}
	}
	props[FieldIndustry] = map[string]any{
		"type":      "string",
		"minLength": 1,
		"maxLength": 1,
	}
	return map[string]any{
		"$schema":    "https://json-schema.org/draft/2020-12/schema",
		"type":       "object",
		"properties": props,
		"required":   RequiredFields,
	}
}

func mustCompileRecordSchema() *jsonschema.Schema {
	b, err := json.Marshal(recordSchemaMap())
	if err != nil {
		panic(fmt.Sprintf("marshal record schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(recordSchemaURL, bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("add record schema: %v", err))
	}
	schema, err := compiler.Compile(recordSchemaURL)
	if err != nil {
		panic(fmt.Sprintf("compile record schema: %v", err))
	}
	return schema
}

func validateSchema(obj map[string]any) error {
	err := recordSchema.Validate(obj)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return &InvalidFieldError{Reason: err.Error()}
	}
	leaf := firstLeaf(verr)
	return &InvalidFieldError{
		Field:  strings.TrimPrefix(leaf.InstanceLocation, "/"),
		Reason: leaf.Message,
	}
}

// firstLeaf walks to the most specific cause of a validation failure.
func firstLeaf(verr *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(verr.Causes) > 0 {
		verr = verr.Causes[0]
	}
	return verr
}
