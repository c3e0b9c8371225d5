package mcptools

import (
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
)

// Kind is the local argument type a JSON Schema property maps to.
type Kind string

const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
)

// Field is one declared argument of a remote tool.
type Field struct {
	Name        string
	Kind        Kind
	Description string
	Required    bool
}

// InputSpec is the local input model translated from a remote tool's JSON
// Schema. Fields not listed as required are optional and default to absence.
type InputSpec struct {
	Fields []Field
}

// SpecFromSchema translates a tool's declared input schema. Properties with
// an unrecognized type fall back to string, matching the schema's permissive
// reading.
func SpecFromSchema(schema mcp.ToolInputSchema) InputSpec {
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	var spec InputSpec
	for name, raw := range schema.Properties {
		field := Field{
			Name:     name,
			Kind:     KindString,
			Required: required[name],
		}
		if prop, ok := raw.(map[string]any); ok {
			if t, ok := prop["type"].(string); ok {
				field.Kind = kindFromJSONType(t)
			}
			if d, ok := prop["description"].(string); ok {
				field.Description = d
			}
		}
		spec.Fields = append(spec.Fields, field)
	}

	// Properties come out of a map; keep the spec stable.
	sort.Slice(spec.Fields, func(i, j int) bool {
		return spec.Fields[i].Name < spec.Fields[j].Name
	})

	return spec
}

func kindFromJSONType(t string) Kind {
	switch t {
	case "string":
		return KindString
	case "integer":
		return KindInteger
	case "number":
		return KindNumber
	case "boolean":
		return KindBoolean
	case "array":
		return KindArray
	case "object":
		return KindObject
	default:
		return KindString
	}
}

// Validate checks call arguments against the spec: required fields must be
// present and every present field must match its kind.
func (s InputSpec) Validate(args map[string]any) error {
	for _, f := range s.Fields {
		v, ok := args[f.Name]
		if !ok {
			if f.Required {
				return fmt.Errorf("missing required argument %q", f.Name)
			}
			continue
		}
		if err := checkKind(f.Kind, v); err != nil {
			return fmt.Errorf("argument %q: %w", f.Name, err)
		}
	}
	return nil
}

func checkKind(k Kind, v any) error {
	switch k {
	case KindString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
	case KindInteger:
		switch n := v.(type) {
		case int, int32, int64:
		case float64:
			if n != float64(int64(n)) {
				return fmt.Errorf("expected integer, got %v", n)
			}
		default:
			return fmt.Errorf("expected integer, got %T", v)
		}
	case KindNumber:
		switch v.(type) {
		case int, int32, int64, float32, float64:
		default:
			return fmt.Errorf("expected number, got %T", v)
		}
	case KindBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", v)
		}
	case KindArray:
		if _, ok := v.([]any); !ok {
			return fmt.Errorf("expected array, got %T", v)
		}
	case KindObject:
		if _, ok := v.(map[string]any); !ok {
			return fmt.Errorf("expected object, got %T", v)
		}
	}
	return nil
}
