package types

// Severity levels used by the incident dataset
const (
	SeverityLow      = "Low"
	SeverityMedium   = "Medium"
	SeverityHigh     = "High"
	SeverityCritical = "Critical"
)

// Incident is a descriptive record used by the incident simulator.
type Incident struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Severity        string          `json:"severity"`
	AffectedStage   string          `json:"affected_stage"` // stage ID
	Environment     string          `json:"environment"`
	Symptoms        []string        `json:"symptoms"`
	Logs            []string        `json:"logs"`
	Timeline        []TimelineEntry `json:"timeline"`
	RootCause       string          `json:"root_cause"`
	ResolutionSteps []string        `json:"resolution_steps"`
	PreventionSteps []string        `json:"prevention_steps"`
}

// TimelineEntry is a single labelled event in an incident timeline.
type TimelineEntry struct {
	T     string `json:"t"`
	Event string `json:"event"`
}
