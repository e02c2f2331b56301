package orchestrator

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/swarmville/pkg/models"
)

// Stage is one role in a decomposition pipeline.
type Stage struct {
	// Role is the agent specialty spawned for this stage.
	Role string
	// Suffix is appended to the parent task id to form the subtask id.
	Suffix string
	// Position is where the stage's agent starts.
	Position models.Position
	// Brief is a format string receiving the composite task description.
	Brief string
}

// Pipeline is an ordered list of stages selected by keyword triggers.
type Pipeline struct {
	// Name identifies the pipeline in logs.
	Name string
	// Triggers lists keyword sets. The pipeline matches when every keyword
	// of any one set appears in the lowercased description.
	Triggers [][]string
	// Stages are spawned in order.
	Stages []Stage
}

// FrontendPipeline splits page-building requests across four specialists
// placed along the x axis.
var FrontendPipeline = Pipeline{
	Name: "frontend",
	Triggers: [][]string{
		{"react", "página"},
		{"react", "page"},
	},
	Stages: []Stage{
		{Role: "researcher", Suffix: "_research", Position: models.Position{X: 20, Y: 20},
			Brief: "Research components and reference material for: %s"},
		{Role: "designer", Suffix: "_design", Position: models.Position{X: 40, Y: 20},
			Brief: "Design page layout and component structure for: %s"},
		{Role: "frontend_developer", Suffix: "_frontend", Position: models.Position{X: 60, Y: 20},
			Brief: "Implement React components for: %s"},
		{Role: "code_reviewer", Suffix: "_reviewer", Position: models.Position{X: 80, Y: 20},
			Brief: "Review generated React code for quality and best practices: %s"},
	},
}

// GenericPipeline is used when no keyword pipeline matches.
var GenericPipeline = Pipeline{
	Name: "generic",
	Stages: []Stage{
		{Role: "analyzer", Suffix: "_analyzer", Position: models.Position{X: 30, Y: 30},
			Brief: "Analyze task: %s"},
		{Role: "executor", Suffix: "_executor", Position: models.Position{X: 60, Y: 30},
			Brief: "Execute task: %s"},
	},
}

// DefaultPipelines is checked in order before falling back to GenericPipeline.
var DefaultPipelines = []Pipeline{FrontendPipeline}

// Matches reports whether the description satisfies any trigger set.
func (p Pipeline) Matches(description string) bool {
	lower := strings.ToLower(description)
	for _, set := range p.Triggers {
		if len(set) == 0 {
			continue
		}
		all := true
		for _, kw := range set {
			if !strings.Contains(lower, kw) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// Expand builds the pipeline's subtasks for one composite task.
func (p Pipeline) Expand(task models.CompositeTask) []models.Subtask {
	subtasks := make([]models.Subtask, 0, len(p.Stages))
	for _, st := range p.Stages {
		subtasks = append(subtasks, models.Subtask{
			TaskID:      task.ID + st.Suffix,
			Role:        st.Role,
			Description: fmt.Sprintf(st.Brief, task.Description),
			Position:    st.Position,
		})
	}
	return subtasks
}
