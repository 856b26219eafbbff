package scriptload

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON string

const schemaURL = "doodlecast://script.schema.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	if err := compiler.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add script schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile script schema: %w", err)
	}
	return schema, nil
})

// SchemaDocument returns the JSON Schema structured scripts must satisfy.
func SchemaDocument() string {
	return schemaJSON
}

// validateSchema checks doc, which must be decoded with json.Decoder.UseNumber.
func validateSchema(doc any, source string) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	err = schema.Validate(doc)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return fmt.Errorf("validate %s: %w", source, err)
	}
	leaf := deepestCause(verr)
	return &SchemaError{Source: source, Path: leaf.InstanceLocation, Message: leaf.Message}
}

// deepestCause follows the first cause chain to the most specific failure,
// preferring the cause with the longest instance location.
func deepestCause(err *jsonschema.ValidationError) *jsonschema.ValidationError {
	current := err
	for len(current.Causes) > 0 {
		next := current.Causes[0]
		for _, cause := range current.Causes[1:] {
			if len(cause.InstanceLocation) > len(next.InstanceLocation) {
				next = cause
			}
		}
		current = next
	}
	return current
}
