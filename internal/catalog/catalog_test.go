package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/devsecops-visualizer/internal/schemas"
	"github.com/jonathan/devsecops-visualizer/internal/types"
)

func TestLoad_EmbeddedDatasets(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	stages := c.Stages()
	require.Len(t, stages, 16)
	assert.Equal(t, "code-commit", stages[0].ID)
	assert.Equal(t, "rollback", stages[len(stages)-1].ID)

	assert.Equal(t, []string{"Pre-CI", "CI", "DevSecOps", "CD", "Post-Deploy"}, c.Categories())
	assert.Len(t, c.Incidents(), 8)
}

func TestLoad_StageFields(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	build, ok := c.Stage("build")
	require.True(t, ok)
	assert.Equal(t, "Build", build.Name)
	assert.Equal(t, "CI", build.Category)
	assert.Equal(t, "Maven", build.PrimaryTool())
	assert.Equal(t, 45, build.ExecutionTime)

	deploy, ok := c.Stage("deploy-aks")
	require.True(t, ok)
	assert.Contains(t, deploy.KubernetesYAML, "apiVersion: apps/v1")

	monitoring, ok := c.Stage("monitoring")
	require.True(t, ok)
	require.NotNil(t, monitoring.Metrics)
	assert.Equal(t, 45.0, monitoring.Metrics.CPU)
}

func TestDefault_ReturnsSameCatalog(t *testing.T) {
	a, err := Default()
	require.NoError(t, err)
	b, err := Default()
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestStages_ReturnsCopy(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	stages := c.Stages()
	stages[0].Name = "mutated"

	first, _ := c.Stage("code-commit")
	assert.Equal(t, "Code Commit & Branching", first.Name)
}

func TestStage_Unknown(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	_, ok := c.Stage("does-not-exist")
	assert.False(t, ok)
	_, ok = c.Incident("INC-999")
	assert.False(t, ok)
}

func TestStagesByCategory(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	groups := c.StagesByCategory()
	require.Len(t, groups, 5)
	assert.Equal(t, "Pre-CI", groups[0].Category)
	assert.Len(t, groups[0].Stages, 2)
	assert.Equal(t, "DevSecOps", groups[2].Category)
	assert.Len(t, groups[2].Stages, 4)
}

func TestCategoryBoundaries(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []int{2, 4, 8, 12}, c.CategoryBoundaries())
}

func TestIncidentsForStage(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	deploy := c.IncidentsForStage("deploy-aks")
	require.Len(t, deploy, 2)
	assert.Equal(t, "INC-001", deploy[0].ID)
	assert.Equal(t, "INC-008", deploy[1].ID)

	autoscaling := c.IncidentsForStage("autoscaling")
	require.Len(t, autoscaling, 1)
	assert.Equal(t, "INC-006", autoscaling[0].ID)

	assert.Empty(t, c.IncidentsForStage("build"))
}

func TestNew_Invariants(t *testing.T) {
	stage := func(id string) types.Stage {
		return types.Stage{ID: id, Name: id, Category: "CI", ToolsUsed: []string{"tool"}}
	}

	tests := []struct {
		name      string
		stages    []types.Stage
		incidents []types.Incident
		reason    string
	}{
		{
			name:   "duplicate stage id",
			stages: []types.Stage{stage("build"), stage("build")},
			reason: "duplicate id",
		},
		{
			name:   "empty stage id",
			stages: []types.Stage{stage("")},
			reason: "empty id",
		},
		{
			name:   "stage without tools",
			stages: []types.Stage{{ID: "build", Name: "Build"}},
			reason: "no tools listed",
		},
		{
			name:      "dangling incident reference",
			stages:    []types.Stage{stage("build")},
			incidents: []types.Incident{{ID: "INC-1", AffectedStage: "Autoscaling (HPA)"}},
			reason:    "unknown affected stage",
		},
		{
			name:      "duplicate incident id",
			stages:    []types.Stage{stage("build")},
			incidents: []types.Incident{{ID: "INC-1", AffectedStage: "build"}, {ID: "INC-1", AffectedStage: "build"}},
			reason:    "duplicate id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.stages, tt.incidents)
			require.Error(t, err)

			var recordErr *InvalidRecordError
			require.True(t, errors.As(err, &recordErr))
			assert.Contains(t, recordErr.Reason, tt.reason)
		})
	}
}

func TestNew_NoStages(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{`), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse stages")
}

func TestEmbeddedSchemas_RejectEmptyTools(t *testing.T) {
	schema, err := dataFiles.ReadFile(stagesSchemaFile)
	require.NoError(t, err)

	doc := []byte(`[{"id": "build", "name": "Build", "category": "CI", "description": "", "tools_used": [], "execution_time": 1}]`)
	err = schemas.ValidateBytes(stagesFile, schema, doc)

	var validationErr *schemas.ValidationError
	require.True(t, errors.As(err, &validationErr))
}

func TestInvalidRecordError_Message(t *testing.T) {
	err := &InvalidRecordError{Kind: "stage", ID: "build", Index: 2, Reason: "duplicate id"}
	assert.Equal(t, `invalid stage "build" at index 2: duplicate id`, err.Error())

	err = &InvalidRecordError{Kind: "incident", Index: 0, Reason: "empty id"}
	assert.Equal(t, "invalid incident at index 0: empty id", err.Error())
}
