package schema

import (
	"encoding/json"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

const refPattern = `^[A-Za-z_][A-Za-z_0-9]*\.[0-9]+$`

// JSONSchema renders a class as a JSON Schema object. Object references are
// strings of the form "Class.serial".
func (m *Model) JSONSchema(c *Class) *jsonschema.Schema {
	s := &jsonschema.Schema{
		Title:      c.Name,
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(c.allAttrs)),
	}
	if c.Abstract {
		s.Description = "abstract class"
	}
	for _, a := range c.allAttrs {
		s.Properties[a.Name] = attrSchema(a)
		if a.Required {
			s.Required = append(s.Required, a.Name)
		}
	}
	return s
}

func attrSchema(a *Attr) *jsonschema.Schema {
	s := &jsonschema.Schema{}
	switch a.Kind {
	case KindBool:
		s.Type = "boolean"
	case KindInt, KindLong:
		s.Type = "integer"
		s.Minimum, s.Maximum = a.Min, a.Max
	case KindFloat:
		s.Type = "number"
		s.Minimum, s.Maximum = a.Min, a.Max
	case KindString:
		s.Type = "string"
		if n, ok := a.MinLength(); ok {
			s.MinLength = &n
		}
		if n, ok := a.MaxLength(); ok {
			s.MaxLength = &n
		}
	case KindEnum:
		s.Type = "string"
		for _, e := range a.Enums {
			s.Enum = append(s.Enum, e)
		}
	case KindDate:
		s.Type = "string"
		s.Format = "date"
	case KindTime:
		s.Type = "string"
		s.Format = "time"
	case KindDateTime:
		s.Type = "string"
		s.Format = "date-time"
	case KindObjRef:
		s.Type = "string"
		s.Pattern = refPattern
		s.Description = "reference to " + a.Target
	case KindList:
		s.Type = "array"
		s.Items = &jsonschema.Schema{Type: "string", Pattern: refPattern}
		s.Description = "list of " + a.Target
	default:
		panic(unhandledKind(a.Kind))
	}
	if a.def != nil {
		if raw, err := json.Marshal(jsonDefault(a.def)); err == nil {
			s.Default = raw
		}
	}
	return s
}

func jsonDefault(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	return v
}
