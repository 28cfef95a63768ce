// Package sre answers questions about simulated incidents. With a configured
// relay the question goes to the model; without one a keyword heuristic over
// the incident record answers offline.
package sre

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jonathan/devsecops-visualizer/internal/catalog"
	"github.com/jonathan/devsecops-visualizer/internal/llm"
	"github.com/jonathan/devsecops-visualizer/internal/prompts"
	"github.com/jonathan/devsecops-visualizer/internal/relay"
	"github.com/jonathan/devsecops-visualizer/internal/types"
)

// Querier is the part of the relay the assistant needs.
type Querier interface {
	Configured() bool
	Query(ctx context.Context, q relay.Query) relay.Result
}

// Source names where an answer came from.
type Source string

// Answer sources
const (
	SourceAI        Source = "ai"
	SourceHeuristic Source = "heuristic"
	SourceDataset   Source = "dataset"
)

// Reply is an answer to one incident question.
type Reply struct {
	Result relay.Result `json:"result"`
	Source Source       `json:"source"`
}

// RCA is a root cause analysis summary.
type RCA struct {
	IncidentID string   `json:"incident_id"`
	RootCause  string   `json:"root_cause"`
	Resolution []string `json:"resolution"`
	Prevention []string `json:"prevention"`
	Source     Source   `json:"source"`
	Warning    string   `json:"warning,omitempty"` // why the AI analysis was not used
}

// Assistant answers incident questions.
type Assistant struct {
	relay   Querier
	catalog *catalog.Catalog
}

// New creates an assistant. A nil relay or one without a credential selects
// the offline heuristic; cat resolves stage names and may be nil.
func New(r Querier, cat *catalog.Catalog) *Assistant {
	return &Assistant{relay: r, catalog: cat}
}

// Online reports whether answers come from the model.
func (a *Assistant) Online() bool {
	return a.relay != nil && a.relay.Configured()
}

// Ask answers question about incident.
func (a *Assistant) Ask(ctx context.Context, incident *types.Incident, question string) Reply {
	if !a.Online() {
		return Reply{Result: relay.Success(Heuristic(incident, question)), Source: SourceHeuristic}
	}

	result := a.relay.Query(ctx, relay.Query{
		Instruction: prompts.BuildIncident(incident, a.stageName(incident), question),
		Question:    question,
	})
	return Reply{Result: result, Source: SourceAI}
}

// AutoRCA summarises root cause, resolution and prevention for incident.
// The model is asked for a structured answer when available; any failure
// falls back to the recorded analysis.
func (a *Assistant) AutoRCA(ctx context.Context, incident *types.Incident) RCA {
	fallback := RCA{
		IncidentID: incident.ID,
		RootCause:  incident.RootCause,
		Resolution: append([]string(nil), incident.ResolutionSteps...),
		Prevention: append([]string(nil), incident.PreventionSteps...),
		Source:     SourceDataset,
	}
	if !a.Online() {
		return fallback
	}

	result := a.relay.Query(ctx, relay.Query{
		Instruction: llm.BuildExtractionPrompt(llm.RCASchema()),
		Question:    prompts.RCAQuestion(incident, a.stageName(incident)),
	})
	if !result.OK {
		fallback.Warning = result.Message
		return fallback
	}

	var parsed struct {
		RootCause  string   `json:"root_cause"`
		Resolution []string `json:"resolution"`
		Prevention []string `json:"prevention"`
	}
	if err := llm.DecodeJSON(result.Value, &parsed); err != nil {
		log.Printf("[sre] unusable RCA answer for %s: %v", incident.ID, err)
		fallback.Warning = err.Error()
		return fallback
	}
	if strings.TrimSpace(parsed.RootCause) == "" {
		fallback.Warning = "model answer has no root cause"
		return fallback
	}

	return RCA{
		IncidentID: incident.ID,
		RootCause:  parsed.RootCause,
		Resolution: parsed.Resolution,
		Prevention: parsed.Prevention,
		Source:     SourceAI,
	}
}

func (a *Assistant) stageName(incident *types.Incident) string {
	if a.catalog == nil {
		return ""
	}
	if stage, ok := a.catalog.Stage(incident.AffectedStage); ok {
		return stage.Name
	}
	return ""
}

// Heuristic answers from the incident record by keyword, first match wins.
func Heuristic(incident *types.Incident, question string) string {
	lower := strings.ToLower(question)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}

	switch {
	case has("root", "cause"):
		return "Root cause (quick): " + incident.RootCause
	case has("fix", "resolve"):
		return fmt.Sprintf("Suggested steps:\n- %s\nUse these steps interactively and validate each change.",
			strings.Join(incident.ResolutionSteps, "\n- "))
	case has("prevent", "avoid"):
		return "Prevention: " + strings.Join(incident.PreventionSteps, "; ")
	case has("explain", "what", "why"):
		return fmt.Sprintf("Explanation: %s. Symptoms include %s. Start with checking logs and timeline.",
			incident.RootCause, strings.Join(incident.Symptoms, ", "))
	case has("question", "ask"):
		return "Interview Q: Explain how you would triage this incident step-by-step."
	default:
		return "Start diagnostics:\n" +
			"1) Check logs in the Log Viewer.\n" +
			"2) Check timeline for recent changes.\n" +
			"3) Run quick checks (pod status, metrics, DB connections).\n" +
			"Ask me to 'show root cause', 'show fix', or 'show prevention'."
	}
}
