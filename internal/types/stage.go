// Package types provides type definitions for the pipeline stages, incidents and chat messages
// shared across the devsecops-visualizer packages.
package types

// Stage describes one static step of the illustrative DevSecOps pipeline.
type Stage struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Category       string        `json:"category"`
	Description    string        `json:"description"`
	WhatHappens    string        `json:"what_happens,omitempty"`
	ToolsUsed      []string      `json:"tools_used"`
	SampleCommands []string      `json:"sample_commands,omitempty"`
	ExpectedOutput string        `json:"expected_output,omitempty"`
	SampleLogs     []string      `json:"sample_logs,omitempty"`
	KubernetesYAML string        `json:"kubernetes_yaml,omitempty"`
	Metrics        *StageMetrics `json:"metrics,omitempty"`
	ExecutionTime  int           `json:"execution_time"` // seconds, informational only
	SecurityImpact string        `json:"security_impact,omitempty"`
	InterviewTips  string        `json:"interview_tips,omitempty"`
}

// StageMetrics holds the sample monitoring figures shown for post-deploy stages.
type StageMetrics struct {
	CPU      float64 `json:"cpu"`
	Memory   float64 `json:"memory"`
	Requests float64 `json:"requests"`
	Errors   float64 `json:"errors"`
}

// StageContext is the subset of a stage used when building stage-specific prompts.
type StageContext struct {
	Name      string   `json:"name"`
	Category  string   `json:"category"`
	ToolsUsed []string `json:"tools_used"`
}

// Context returns the prompt context for the stage.
func (s *Stage) Context() *StageContext {
	if s == nil {
		return nil
	}
	return &StageContext{
		Name:      s.Name,
		Category:  s.Category,
		ToolsUsed: append([]string(nil), s.ToolsUsed...),
	}
}

// PrimaryTool returns the first listed tool, or an empty string.
func (s *Stage) PrimaryTool() string {
	if len(s.ToolsUsed) == 0 {
		return ""
	}
	return s.ToolsUsed[0]
}
