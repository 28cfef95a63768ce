// Package catalog provides the static pipeline stage and incident datasets.
// The datasets are embedded at compile time and validated when loaded.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jonathan/devsecops-visualizer/internal/schemas"
	"github.com/jonathan/devsecops-visualizer/internal/types"
)

//go:embed data/*.json
var dataFiles embed.FS

const (
	stagesFile          = "data/stages.json"
	stagesSchemaFile    = "data/stages.schema.json"
	incidentsFile       = "data/incidents.json"
	incidentsSchemaFile = "data/incidents.schema.json"
)

// Catalog holds the ordered stage list and the incident records.
// It is read-only after construction and safe for concurrent use.
type Catalog struct {
	stages     []types.Stage
	stageIndex map[string]int
	incidents  []types.Incident
	incidentIx map[string]int
}

// CategoryGroup is a category name with its stages in pipeline order.
type CategoryGroup struct {
	Category string        `json:"category"`
	Stages   []types.Stage `json:"stages"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the catalog built from the embedded datasets, loading it once.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Load()
	})
	return defaultCatalog, defaultErr
}

// Load reads, schema-validates and indexes the embedded datasets.
func Load() (*Catalog, error) {
	stagesJSON, err := readValidated(stagesFile, stagesSchemaFile)
	if err != nil {
		return nil, err
	}
	incidentsJSON, err := readValidated(incidentsFile, incidentsSchemaFile)
	if err != nil {
		return nil, err
	}
	return Parse(stagesJSON, incidentsJSON)
}

// Parse builds a catalog from raw stage and incident JSON documents.
// It enforces the invariants the schemas cannot express: unique ids and
// incident references to existing stage ids.
func Parse(stagesJSON, incidentsJSON []byte) (*Catalog, error) {
	var stages []types.Stage
	if err := json.Unmarshal(stagesJSON, &stages); err != nil {
		return nil, fmt.Errorf("failed to parse stages: %w", err)
	}

	var incidents []types.Incident
	if len(incidentsJSON) > 0 {
		if err := json.Unmarshal(incidentsJSON, &incidents); err != nil {
			return nil, fmt.Errorf("failed to parse incidents: %w", err)
		}
	}

	return New(stages, incidents)
}

// New builds a catalog from already decoded records.
func New(stages []types.Stage, incidents []types.Incident) (*Catalog, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("catalog has no stages")
	}

	c := &Catalog{
		stages:     stages,
		stageIndex: make(map[string]int, len(stages)),
		incidents:  incidents,
		incidentIx: make(map[string]int, len(incidents)),
	}

	for i, stage := range stages {
		if stage.ID == "" {
			return nil, &InvalidRecordError{Kind: "stage", Index: i, Reason: "empty id"}
		}
		if _, dup := c.stageIndex[stage.ID]; dup {
			return nil, &InvalidRecordError{Kind: "stage", ID: stage.ID, Index: i, Reason: "duplicate id"}
		}
		if len(stage.ToolsUsed) == 0 {
			return nil, &InvalidRecordError{Kind: "stage", ID: stage.ID, Index: i, Reason: "no tools listed"}
		}
		c.stageIndex[stage.ID] = i
	}

	for i, incident := range incidents {
		if incident.ID == "" {
			return nil, &InvalidRecordError{Kind: "incident", Index: i, Reason: "empty id"}
		}
		if _, dup := c.incidentIx[incident.ID]; dup {
			return nil, &InvalidRecordError{Kind: "incident", ID: incident.ID, Index: i, Reason: "duplicate id"}
		}
		if _, ok := c.stageIndex[incident.AffectedStage]; !ok {
			return nil, &InvalidRecordError{
				Kind:   "incident",
				ID:     incident.ID,
				Index:  i,
				Reason: fmt.Sprintf("unknown affected stage %q", incident.AffectedStage),
			}
		}
		c.incidentIx[incident.ID] = i
	}

	return c, nil
}

// Stages returns the stages in pipeline order. The slice is a copy.
func (c *Catalog) Stages() []types.Stage {
	out := make([]types.Stage, len(c.stages))
	copy(out, c.stages)
	return out
}

// Stage returns the stage with the given id.
func (c *Catalog) Stage(id string) (types.Stage, bool) {
	i, ok := c.stageIndex[id]
	if !ok {
		return types.Stage{}, false
	}
	return c.stages[i], true
}

// Categories returns category names in order of first appearance.
func (c *Catalog) Categories() []string {
	var categories []string
	seen := make(map[string]bool)
	for _, stage := range c.stages {
		if !seen[stage.Category] {
			seen[stage.Category] = true
			categories = append(categories, stage.Category)
		}
	}
	return categories
}

// StagesByCategory groups the stages by category, preserving pipeline order.
func (c *Catalog) StagesByCategory() []CategoryGroup {
	groups := make([]CategoryGroup, 0)
	index := make(map[string]int)
	for _, stage := range c.stages {
		i, ok := index[stage.Category]
		if !ok {
			i = len(groups)
			index[stage.Category] = i
			groups = append(groups, CategoryGroup{Category: stage.Category})
		}
		groups[i].Stages = append(groups[i].Stages, stage)
	}
	return groups
}

// CategoryBoundaries returns the indices of stages whose category differs
// from the previous stage's.
func (c *Catalog) CategoryBoundaries() []int {
	var boundaries []int
	for i := 1; i < len(c.stages); i++ {
		if c.stages[i].Category != c.stages[i-1].Category {
			boundaries = append(boundaries, i)
		}
	}
	return boundaries
}

// Incidents returns all incidents in dataset order. The slice is a copy.
func (c *Catalog) Incidents() []types.Incident {
	out := make([]types.Incident, len(c.incidents))
	copy(out, c.incidents)
	return out
}

// Incident returns the incident with the given id.
func (c *Catalog) Incident(id string) (types.Incident, bool) {
	i, ok := c.incidentIx[id]
	if !ok {
		return types.Incident{}, false
	}
	return c.incidents[i], true
}

// IncidentsForStage returns the incidents that affect the given stage.
func (c *Catalog) IncidentsForStage(stageID string) []types.Incident {
	out := make([]types.Incident, 0)
	for _, incident := range c.incidents {
		if incident.AffectedStage == stageID {
			out = append(out, incident)
		}
	}
	return out
}

func readValidated(file, schemaFile string) ([]byte, error) {
	data, err := dataFiles.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}
	schema, err := dataFiles.ReadFile(schemaFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", schemaFile, err)
	}
	if err := schemas.ValidateBytes(file, schema, data); err != nil {
		return nil, err
	}
	return data, nil
}
