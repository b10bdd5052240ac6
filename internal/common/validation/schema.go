package validation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Positions the shop hires for.
var Positions = []string{
	"Auto Body Technician",
	"Painter",
	"Estimator",
	"Customer Service",
}

// RequiredApplicationFields are the careers form fields that must be filled in.
var RequiredApplicationFields = []string{
	"firstName", "lastName", "email", "phone", "experience", "position",
}

const applicationSchemaJSON = `{
  "type": "object",
  "required": %[1]s,
  "properties": {
    "firstName":  {"type": "string", "minLength": 1, "pattern": "\\S"},
    "lastName":   {"type": "string", "minLength": 1, "pattern": "\\S"},
    "email":      {"type": "string", "minLength": 1},
    "phone":      {"type": "string", "minLength": 1},
    "experience": {"type": "string", "pattern": "^\\s*\\d+\\s*$"},
    "position":   {"type": "string", "enum": %[2]s},
    "address":    {"type": "string"},
    "city":       {"type": "string"},
    "state":      {"type": "string"},
    "zip":        {"type": "string"},
    "references": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name":         {"type": "string"},
          "relationship": {"type": "string"},
          "phone":        {"type": "string"},
          "email":        {"type": "string"}
        }
      }
    }
  }
}`

var applicationSchema *gojsonschema.Schema

func init() {
	src := fmt.Sprintf(applicationSchemaJSON, jsonList(RequiredApplicationFields), jsonList(Positions))

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("application schema: %v", err))
	}
	applicationSchema = schema
}

func jsonList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = strconv.Quote(item)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

// ValidateApplication checks a careers form document and returns one message
// per offending field. An empty result means the document is acceptable.
func ValidateApplication(doc map[string]interface{}) (FieldErrors, error) {
	result, err := applicationSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	errs := FieldErrors{}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if desc.Type() == "required" {
			if p, ok := desc.Details()["property"].(string); ok {
				field = p
			}
		}
		if _, seen := errs[field]; seen {
			continue
		}
		errs[field] = schemaMessage(field, desc)
	}

	email, _ := doc["email"].(string)
	phone, _ := doc["phone"].(string)
	for field, msg := range ContactFields(email, phone) {
		errs[field] = msg
	}

	refs, _ := doc["references"].([]interface{})
	for i, r := range refs {
		ref, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		refEmail, _ := ref["email"].(string)
		refPhone, _ := ref["phone"].(string)
		for field, msg := range ContactFields(refEmail, refPhone) {
			errs[fmt.Sprintf("references.%d.%s", i, field)] = msg
		}
	}

	return errs, nil
}

func schemaMessage(field string, desc gojsonschema.ResultError) string {
	switch {
	case desc.Type() == "required", desc.Type() == "string_gte", field == "firstName" || field == "lastName":
		return MsgRequired
	case field == "experience":
		return "Please enter years of experience as a number"
	case field == "position":
		return "Please select a position"
	default:
		return desc.Description()
	}
}

// Fields returns the offending field names in a stable order.
func (fe FieldErrors) Fields() []string {
	out := make([]string, 0, len(fe))
	for k := range fe {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
