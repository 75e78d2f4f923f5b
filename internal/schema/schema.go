// Package schema holds the single description of a process flow's shape.
//
// The canonical form is a genai.Schema handed to providers that enforce a
// response schema. Providers that only accept free-form chat receive the
// derived ForPrompt form embedded in their prompt, so both always describe
// the same fields, types and enum values.
package schema

import (
	"strings"

	genai "google.golang.org/genai"

	"sopflow/internal/types"
)

func str(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

func potentials() []string {
	all := types.AutomationPotentials()
	out := make([]string, len(all))
	for i, p := range all {
		out[i] = string(p)
	}
	return out
}

func stepSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":          str("A unique identifier for the step (e.g., 'step_1_1_1')."),
			"name":        str("A short name for the step, like a heading."),
			"description": str("A detailed description of the action to be taken in this step."),
			"automation_potential": {
				Type:        genai.TypeString,
				Enum:        potentials(),
				Description: "An assessment of how easily this step could be automated.",
			},
			"automation_suggestion": str("If automation potential is High or Medium, a brief suggestion on how (e.g., 'Automated email notification', 'RPA bot for data entry')."),
			"responsible_role":      str("The job title or role responsible for this step (e.g., 'HR Coordinator', 'IT Technician')."),
		},
		Required:         []string{"id", "name", "description", "automation_potential", "responsible_role"},
		PropertyOrdering: []string{"id", "name", "description", "automation_potential", "automation_suggestion", "responsible_role"},
	}
}

func taskSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":          str("A unique identifier for the task (e.g., 'task_1_1')."),
			"name":        str("The name of the task."),
			"description": str("A brief description of the task."),
			"steps": {
				Type:        genai.TypeArray,
				Description: "An array of individual steps to complete the task.",
				Items:       stepSchema(),
			},
		},
		Required:         []string{"id", "name", "description", "steps"},
		PropertyOrdering: []string{"id", "name", "description", "steps"},
	}
}

func subProcessSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":          str("A unique identifier for the sub-process (e.g., 'sub_1')."),
			"name":        str("The name of this sub-process or phase."),
			"description": str("A brief description of this sub-process."),
			"tasks": {
				Type:        genai.TypeArray,
				Description: "An array of distinct tasks within this sub-process.",
				Items:       taskSchema(),
			},
		},
		Required:         []string{"id", "name", "description", "tasks"},
		PropertyOrdering: []string{"id", "name", "description", "tasks"},
	}
}

// ProcessFlow returns a fresh copy of the process flow schema. Callers may
// mutate the result.
func ProcessFlow() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"process_name": str("The overall name of the business process."),
			"description":  str("A brief, one-sentence summary of the process's objective."),
			"version":      str("The version number of the document, if available."),
			"sub_processes": {
				Type:        genai.TypeArray,
				Description: "An array of the main phases or sub-processes within the overall process.",
				Items:       subProcessSchema(),
			},
		},
		Required:         []string{"process_name", "description", "sub_processes"},
		PropertyOrdering: []string{"process_name", "description", "version", "sub_processes"},
	}
}

// ChatRefinement is the envelope returned by a chat refinement round.
func ChatRefinement() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"updatedFlow": ProcessFlow(),
			"aiResponse":  str("A conversational, friendly response to the user explaining the changes made to the flow or asking a clarifying question."),
		},
		Required:         []string{"updatedFlow", "aiResponse"},
		PropertyOrdering: []string{"updatedFlow", "aiResponse"},
	}
}

// ForPrompt converts a genai schema into plain JSON-schema shaped maps for
// embedding in a prompt. Type tags are lower-cased and provider-only
// metadata such as property ordering is dropped; descriptions are kept to
// steer the model.
func ForPrompt(s *genai.Schema) map[string]any {
	if s == nil {
		return nil
	}
	out := map[string]any{}
	if s.Type != "" {
		out["type"] = strings.ToLower(string(s.Type))
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		out["enum"] = append([]string(nil), s.Enum...)
	}
	if len(s.Required) > 0 {
		out["required"] = append([]string(nil), s.Required...)
	}
	if s.Items != nil {
		out["items"] = ForPrompt(s.Items)
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = ForPrompt(p)
		}
		out["properties"] = props
	}
	return out
}

// ProcessFlowForPrompt is ForPrompt(ProcessFlow()).
func ProcessFlowForPrompt() map[string]any { return ForPrompt(ProcessFlow()) }

// ChatRefinementForPrompt is ForPrompt(ChatRefinement()).
func ChatRefinementForPrompt() map[string]any { return ForPrompt(ChatRefinement()) }
