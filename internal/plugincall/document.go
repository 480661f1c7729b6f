// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugincall

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/holomush/plugincall/internal/attr"
	"github.com/holomush/plugincall/internal/identity"
)

// Error codes for definition documents.
const (
	CodeInvalidDocument = "INVALID_DOCUMENT"
	CodeSchema          = "SCHEMA_ERROR"
)

// Document is an extension definition file: an extension identity and the
// plugin calls it owns, keyed by command name.
type Document struct {
	Version   string             `json:"version" yaml:"version" jsonschema:"required,description=Semantic version of this document"`
	Extension ExtensionDoc       `json:"extension" yaml:"extension" jsonschema:"required"`
	Calls     map[string]CallDoc `json:"calls" yaml:"calls" jsonschema:"required,description=Plugin calls keyed by command name; names start with $"`
}

// ExtensionDoc identifies the extension that owns the calls.
type ExtensionDoc struct {
	ID   string `json:"id" yaml:"id" jsonschema:"required,minLength=1"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// CallDoc is one plugin call in a Document.
type CallDoc struct {
	PluginPath   string                       `json:"pluginPath" yaml:"pluginPath" jsonschema:"required,minLength=1"`
	PluginMethod string                       `json:"pluginMethod" yaml:"pluginMethod" jsonschema:"required,minLength=1"`
	CallerRoles  RoleList                     `json:"callerRoles,omitempty" yaml:"callerRoles,omitempty"`
	CommandHelp  map[string]map[string]string `json:"commandHelp,omitempty" yaml:"commandHelp,omitempty"`
}

// RoleList is a comma-separated string or a list of role names.
type RoleList any

var roleListType = reflect.TypeOf((*RoleList)(nil)).Elem()

// roleListSchema is shared by GenerateSchema for the callerRoles property.
func roleListSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Description: "Permitted caller roles, comma separated or as a list",
		OneOf: []*jsonschema.Schema{
			{Type: "string"},
			{Type: "array", Items: &jsonschema.Schema{Type: "string"}},
		},
	}
}

// ParsedDocument is a validated document ready to build definitions from.
type ParsedDocument struct {
	Version   *semver.Version
	Extension identity.Principal
	// Calls holds each call's data in file order.
	Calls []attr.Field
}

// ParseDocument validates data against the document schema and converts it.
func ParseDocument(data []byte) (*ParsedDocument, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}

	var raw struct {
		Version   string       `yaml:"version"`
		Extension ExtensionDoc `yaml:"extension"`
		Calls     yaml.Node    `yaml:"calls"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, oops.Code(CodeInvalidDocument).Wrapf(err, "invalid YAML")
	}

	version, err := semver.NewVersion(raw.Version)
	if err != nil {
		return nil, oops.Code(CodeInvalidDocument).With("version", raw.Version).Wrapf(err, "invalid version")
	}

	calls, err := attr.FromYAML(&raw.Calls)
	if err != nil {
		return nil, oops.Code(CodeInvalidDocument).Wrapf(err, "invalid calls")
	}
	fields, err := calls.AsMap()
	if err != nil {
		return nil, oops.Code(CodeInvalidDocument).Wrapf(err, "calls must be a map")
	}
	for _, f := range fields {
		if !strings.HasPrefix(f.Name, Prefix) || len(f.Name) == len(Prefix) {
			return nil, oops.Code(CodeInvalidDocument).With("call", f.Name).
				Errorf("call name %q must start with %s", f.Name, Prefix)
		}
	}

	name := raw.Extension.Name
	if name == "" {
		name = raw.Extension.ID
	}
	return &ParsedDocument{
		Version:   version,
		Extension: identity.NewExtension(raw.Extension.ID, name),
		Calls:     fields,
	}, nil
}

var (
	schemaOnce     sync.Once
	compiledSchema *jschema.Schema
	errSchema      error
)

// SchemaID is the $id of the definition document schema.
const SchemaID = "https://holomush.dev/schemas/plugincall.schema.json"

// GenerateSchema generates the JSON Schema for definition documents.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == roleListType {
				return roleListSchema()
			}
			return nil
		},
	}
	schema := r.Reflect(&Document{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "Plugin Call Definitions"
	schema.Description = "Schema for extension plugin call definition files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code(CodeSchema).Wrapf(err, "marshal schema")
	}
	return data, nil
}

// ValidateSchema validates YAML data against the definition document schema.
func ValidateSchema(data []byte) error {
	if len(data) == 0 {
		return oops.Code(CodeInvalidDocument).Errorf("document is empty")
	}

	var yamlData any
	if err := yaml.Unmarshal(data, &yamlData); err != nil {
		return oops.Code(CodeInvalidDocument).Wrapf(err, "invalid YAML")
	}

	sch, err := getCompiledSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(convertToJSONTypes(yamlData)); err != nil {
		return oops.Code(CodeInvalidDocument).With("detail", err.Error()).Errorf("schema validation failed: %v", err)
	}
	return nil
}

func getCompiledSchema() (*jschema.Schema, error) {
	schemaOnce.Do(func() {
		schemaBytes, err := GenerateSchema()
		if err != nil {
			errSchema = err
			return
		}
		var schemaData any
		if err := json.Unmarshal(schemaBytes, &schemaData); err != nil {
			errSchema = oops.Code(CodeSchema).Wrapf(err, "parse schema JSON")
			return
		}
		c := jschema.NewCompiler()
		if err := c.AddResource("schema.json", schemaData); err != nil {
			errSchema = oops.Code(CodeSchema).Wrapf(err, "add schema resource")
			return
		}
		compiledSchema, errSchema = c.Compile("schema.json")
		if errSchema != nil {
			errSchema = oops.Code(CodeSchema).Wrapf(errSchema, "compile schema")
		}
	})
	return compiledSchema, errSchema
}

// convertToJSONTypes converts YAML-parsed data to the types the validator
// expects. Integers become float64 and non-string map keys are stringified.
func convertToJSONTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v := range val {
			result[k] = convertToJSONTypes(v)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v := range val {
			result[i] = convertToJSONTypes(v)
		}
		return result
	case string, bool, float64, nil:
		return val
	default:
		if b, err := json.Marshal(val); err == nil {
			var result any
			if err := json.Unmarshal(b, &result); err == nil {
				return result
			}
		}
		return val
	}
}

// FormatSchemaError returns the validator's description of a schema error.
func FormatSchemaError(err error) string {
	if err == nil {
		return ""
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		if detail, ok := oopsErr.Context()["detail"].(string); ok {
			return detail
		}
	}
	return err.Error()
}
