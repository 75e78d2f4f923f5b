package types

import (
	"encoding/json"
	"fmt"
)

// Process flow tree ---------------------------------------------------------------

// ProcessFlow is the root of a digitized procedure. A flow is always complete:
// it is produced whole by a provider call or by a local edit, never merged.
type ProcessFlow struct {
	ProcessName  string       `json:"process_name"`
	Description  string       `json:"description"`
	Version      string       `json:"version"`
	SubProcesses []SubProcess `json:"sub_processes"`
}

type SubProcess struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Tasks       []Task `json:"tasks"`
}

type Task struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Steps       []Step `json:"steps"`
}

type Step struct {
	ID                   string              `json:"id"`
	Name                 string              `json:"name"`
	Description          string              `json:"description"`
	AutomationPotential  AutomationPotential `json:"automation_potential"`
	AutomationSuggestion string              `json:"automation_suggestion,omitempty"`
	ResponsibleRole      string              `json:"responsible_role,omitempty"`
}

// Automation potential --------------------------------------------------------------

type AutomationPotential string

const (
	PotentialHigh   AutomationPotential = "High"
	PotentialMedium AutomationPotential = "Medium"
	PotentialLow    AutomationPotential = "Low"
	PotentialNone   AutomationPotential = "None"
)

// AutomationPotentials lists the closed enum in display order.
func AutomationPotentials() []AutomationPotential {
	return []AutomationPotential{PotentialHigh, PotentialMedium, PotentialLow, PotentialNone}
}

func (p AutomationPotential) Valid() bool {
	switch p {
	case PotentialHigh, PotentialMedium, PotentialLow, PotentialNone:
		return true
	}
	return false
}

// UnmarshalJSON rejects values outside the enum so a model that invents a
// level fails decoding instead of producing a half-valid step.
func (p *AutomationPotential) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v := AutomationPotential(s)
	if !v.Valid() {
		return fmt.Errorf("automation_potential %q is not one of High, Medium, Low, None", s)
	}
	*p = v
	return nil
}

// Chat transcript -------------------------------------------------------------------

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func UserMessage(content string) ChatMessage  { return ChatMessage{Role: RoleUser, Content: content} }
func ModelMessage(content string) ChatMessage { return ChatMessage{Role: RoleModel, Content: content} }
