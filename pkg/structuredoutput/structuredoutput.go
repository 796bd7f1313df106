package structuredoutput

import (
	"reflect"
	"strings"

	"github.com/tagus/graphmind/pkg/interfaces"
)

// NewResponseFormat derives a structured-output ResponseFormat from a struct
// type via reflection. Field names come from json tags; fields without
// omitempty are required. A `description` tag becomes the property
// description and an `enum` tag (comma-separated) constrains string fields
// to a fixed value set.
func NewResponseFormat(v interface{}) *interfaces.ResponseFormat {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return &interfaces.ResponseFormat{
		Type:   interfaces.ResponseFormatJSON,
		Name:   t.Name(),
		Schema: interfaces.JSONSchema(objectSchema(t)),
	}
}

func objectSchema(t reflect.Type) map[string]any {
	properties := make(map[string]any)
	required := []string{}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := jsonName(field)
		if name == "-" {
			continue
		}
		properties[name] = fieldSchema(field)
		if !strings.Contains(field.Tag.Get("json"), "omitempty") {
			required = append(required, name)
		}
	}

	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

func fieldSchema(field reflect.StructField) map[string]any {
	schema := typeSchema(field.Type)
	if desc := field.Tag.Get("description"); desc != "" {
		schema["description"] = desc
	}
	if enum := field.Tag.Get("enum"); enum != "" {
		values := strings.Split(enum, ",")
		anyValues := make([]any, len(values))
		for i, v := range values {
			anyValues[i] = strings.TrimSpace(v)
		}
		schema["enum"] = anyValues
	}
	return schema
}

func typeSchema(t reflect.Type) map[string]any {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Struct:
		return objectSchema(t)
	case reflect.Slice, reflect.Array:
		return map[string]any{
			"type":  "array",
			"items": typeSchema(t.Elem()),
		}
	case reflect.Map:
		return map[string]any{
			"type":                 "object",
			"additionalProperties": typeSchema(t.Elem()),
		}
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	default:
		return map[string]any{"type": "object"}
	}
}

func jsonName(field reflect.StructField) string {
	tag := strings.Split(field.Tag.Get("json"), ",")[0]
	if tag == "" {
		return field.Name
	}
	return tag
}
