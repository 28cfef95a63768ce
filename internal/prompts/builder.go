package prompts

import (
	"strings"

	"github.com/jonathan/devsecops-visualizer/internal/types"
)

// Build assembles the assistant instruction for a question. Stage context is
// included only in stage mode; unknown modes are treated as general.
func Build(mode, question string, stage *types.StageContext) string {
	mode = normalizeMode(mode)

	context := ""
	if mode == types.ModeStage && stage != nil {
		context = StageContextBlock(stage)
	}

	var sb strings.Builder
	sb.WriteString(MustGet(AssistantFile, "role"))
	sb.WriteString("\n")
	sb.WriteString(MustGet(AssistantFile, "hint-"+mode))
	sb.WriteString("\n")
	sb.WriteString(context)
	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n")
	sb.WriteString(MustGet(AssistantFile, "fresher"))
	return sb.String()
}

// StageContextBlock renders the Stage/Category/Tools lines for a stage.
func StageContextBlock(stage *types.StageContext) string {
	tools := strings.Join(stage.ToolsUsed, ", ")
	if tools == "" {
		tools = "N/A"
	}
	return Format(MustGet(AssistantFile, "stage-context"), map[string]string{
		"Name":     stage.Name,
		"Category": stage.Category,
		"Tools":    tools,
	})
}

// IncidentDetails renders the incident facts shared by the SRE prompts.
// stageName is the display name of the affected stage; when empty the stage id is used.
func IncidentDetails(incident *types.Incident, stageName string) string {
	if stageName == "" {
		stageName = incident.AffectedStage
	}
	return Format(MustGet(SREFile, "incident-details"), map[string]string{
		"Title":       incident.Title,
		"Stage":       stageName,
		"Environment": incident.Environment,
		"Symptoms":    strings.Join(incident.Symptoms, "; "),
		"Logs":        strings.Join(incident.Logs, "\n"),
	})
}

// BuildIncident assembles the SRE instruction for a question about an incident.
func BuildIncident(incident *types.Incident, stageName, question string) string {
	return Format(MustGet(SREFile, "incident"), map[string]string{
		"Details":  IncidentDetails(incident, stageName),
		"Question": question,
	})
}

// RCAQuestion returns the user message asking for a root cause analysis.
func RCAQuestion(incident *types.Incident, stageName string) string {
	return IncidentDetails(incident, stageName) + "\n\n" + MustGet(SREFile, "rca-question")
}

// QuickKind selects a canned assistant question.
type QuickKind string

// Canned question kinds
const (
	QuickInterview QuickKind = "interview"
	QuickSimple    QuickKind = "simple"
	QuickExample   QuickKind = "example"
)

// QuickQuestion returns the canned question for kind and the mode it should be
// asked in. Interview questions use interview mode; the others use stage mode
// when a stage is given and general mode otherwise.
func QuickQuestion(kind QuickKind, stage *types.StageContext) (question, mode string) {
	key := "quick-" + string(kind)
	switch kind {
	case QuickInterview, QuickSimple, QuickExample:
	default:
		key = "quick-" + string(QuickSimple)
	}

	mode = types.ModeGeneral
	if stage != nil {
		key += "-stage"
		mode = types.ModeStage
	}
	if kind == QuickInterview {
		mode = types.ModeInterview
	}

	name := ""
	if stage != nil {
		name = stage.Name
	}
	return Format(MustGet(AssistantFile, key), map[string]string{"Name": name}), mode
}

func normalizeMode(mode string) string {
	switch mode {
	case types.ModeStage, types.ModeInterview:
		return mode
	default:
		return types.ModeGeneral
	}
}
