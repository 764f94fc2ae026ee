package services

import (
	"fmt"
	"strings"
	"sync"

	"github.com/localnerve/bizflow/data"
	"github.com/localnerve/bizflow/internal/types"
	"github.com/xeipuuv/gojsonschema"
)

// rootContext is how gojsonschema names the document root
const rootContext = "(root)"

var (
	applicationSchema     *gojsonschema.Schema
	applicationSchemaErr  error
	applicationSchemaOnce sync.Once
)

func loadApplicationSchema() (*gojsonschema.Schema, error) {
	applicationSchemaOnce.Do(func() {
		applicationSchema, applicationSchemaErr = gojsonschema.NewSchema(
			gojsonschema.NewStringLoader(data.ApplicationSchema))
	})
	return applicationSchema, applicationSchemaErr
}

// ValidateApplicationPayload checks a create-application document and returns field errors.
// Field keys use dotted paths, e.g. "details.externalCompanies.0.name".
func ValidateApplicationPayload(doc []byte) error {
	schema, err := loadApplicationSchema()
	if err != nil {
		return types.Internal("load application schema", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return types.Validation("validation.payload", "Request body is not valid JSON", nil)
	}
	if result.Valid() {
		return nil
	}

	fields := make(map[string]string, len(result.Errors()))
	for _, desc := range result.Errors() {
		fields[fieldKey(desc)] = desc.Description()
	}

	if _, ok := fields["serviceType"]; ok {
		return types.Validation("validation.serviceType", "A valid service type is required", fields)
	}
	return types.Validation("validation.payload", "Application payload is invalid", fields)
}

// fieldKey names the offending property; required errors point at the missing child
func fieldKey(desc gojsonschema.ResultError) string {
	field := desc.Field()
	if desc.Type() == "required" {
		if prop, ok := desc.Details()["property"]; ok {
			if field == rootContext || field == "" {
				return fmt.Sprint(prop)
			}
			return field + "." + fmt.Sprint(prop)
		}
	}
	if field == rootContext {
		return "body"
	}
	return strings.TrimPrefix(field, rootContext+".")
}
