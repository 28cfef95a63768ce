package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema describes a JSON answer the model is asked to produce.
type ExtractionSchema struct {
	Name        string
	Description string // preamble describing the task
	Fields      []SchemaField
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string
	Type        string // type hint such as "string" or "[string]"
	Description string
	Required    bool
}

// BuildExtractionPrompt renders the schema as an instruction for a JSON-only answer.
func BuildExtractionPrompt(schema ExtractionSchema) string {
	var sb strings.Builder

	sb.WriteString(schema.Description)
	sb.WriteString("\n\nRespond with ONLY a JSON object of this shape:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		fmt.Fprintf(&sb, "  %q: %s", field.Name, typeHint)
		if field.Required {
			sb.WriteString(" (required)")
		}
		if field.Description != "" {
			fmt.Fprintf(&sb, " // %s", field.Description)
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\nNo markdown, no commentary.\n")

	return sb.String()
}

// RCASchema asks for a root cause analysis of a pipeline incident.
func RCASchema() ExtractionSchema {
	return ExtractionSchema{
		Name:        "IncidentRCA",
		Description: "You are a senior SRE. Produce a concise root cause analysis for the incident described by the user.",
		Fields: []SchemaField{
			{Name: "root_cause", Type: "string", Description: "most likely root cause", Required: true},
			{Name: "resolution", Type: "[string]", Description: "ordered resolution steps", Required: true},
			{Name: "prevention", Type: "[string]", Description: "measures that stop a recurrence", Required: true},
		},
	}
}
