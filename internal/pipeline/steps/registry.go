// Package steps provides the stage definitions of the analysis pipeline, their
// dependencies and failure policies, and definition-time validation.
package steps

import (
	"errors"
	"fmt"
	"strings"
)

// Stage names, in pipeline order
const (
	DataScouting           = "data_scouting"
	CompetitorSEO          = "competitor_seo"
	Copywriting            = "copywriting"
	ProductAnalysis        = "product_analysis"
	SEOScoring             = "seo_scoring"
	VisualDesign           = "visual_design"
	VideoScript            = "video_script"
	ImprovementSuggestions = "improvement_suggestions"
	QualityCheck           = "quality_check"
)

// Stage categories
const (
	CategoryResearch = "research"
	CategoryContent  = "content"
	CategoryReview   = "review"
)

// FailurePolicy decides what happens when a stage's agent fails.
type FailurePolicy string

const (
	// Substitute records the stage as completed with the agent's default payload and continues.
	Substitute FailurePolicy = "substitute"
	// Abort fails the stage and the whole run.
	Abort FailurePolicy = "abort"
)

// Definition defines metadata for a pipeline stage
type Definition struct {
	Name         string
	Category     string
	Dependencies []string
	OnFailure    FailurePolicy
}

// Definitions is the ordered stage registry of an analysis run.
var Definitions = []Definition{
	{Name: DataScouting, Category: CategoryResearch, OnFailure: Substitute},
	{Name: CompetitorSEO, Category: CategoryResearch, OnFailure: Substitute},
	{Name: Copywriting, Category: CategoryContent, Dependencies: []string{DataScouting}, OnFailure: Substitute},
	{Name: ProductAnalysis, Category: CategoryContent, Dependencies: []string{Copywriting}, OnFailure: Abort},
	{Name: SEOScoring, Category: CategoryReview, Dependencies: []string{CompetitorSEO, Copywriting}, OnFailure: Substitute},
	{Name: VisualDesign, Category: CategoryContent, OnFailure: Substitute},
	{Name: VideoScript, Category: CategoryContent, Dependencies: []string{Copywriting}, OnFailure: Substitute},
	{Name: ImprovementSuggestions, Category: CategoryReview, OnFailure: Substitute},
	{Name: QualityCheck, Category: CategoryReview, Dependencies: []string{CompetitorSEO, Copywriting, VisualDesign}, OnFailure: Substitute},
}

// ErrDuplicateStage is returned when two definitions share a name.
var ErrDuplicateStage = errors.New("duplicate stage name")

// DependencyError represents a dependency validation error
type DependencyError struct {
	Step                string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("stage %s: missing dependencies: %v", e.Step, e.MissingDependencies)
}

// Validate checks a registry: names are non-empty and unique, policies are known,
// and every dependency names an earlier stage.
func Validate(defs []Definition) error {
	seen := make(map[string]bool, len(defs))
	for i, def := range defs {
		if strings.TrimSpace(def.Name) == "" {
			return fmt.Errorf("stage %d has no name", i)
		}
		if seen[def.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateStage, def.Name)
		}
		switch def.OnFailure {
		case Substitute, Abort:
		default:
			return fmt.Errorf("stage %s: unknown failure policy %q", def.Name, def.OnFailure)
		}

		var missing []string
		for _, dep := range def.Dependencies {
			if !seen[dep] {
				missing = append(missing, dep)
			}
		}
		if len(missing) > 0 {
			return &DependencyError{Step: def.Name, MissingDependencies: missing}
		}
		seen[def.Name] = true
	}
	return nil
}

// Lookup returns the position and definition of the stage named name.
func Lookup(defs []Definition, name string) (int, Definition, bool) {
	for i, def := range defs {
		if def.Name == name {
			return i, def, true
		}
	}
	return 0, Definition{}, false
}

// Names returns the stage names in order.
func Names(defs []Definition) []string {
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	return names
}

// WithPolicies returns a copy of defs with the failure policies in overrides applied.
// Overrides naming unknown stages are an error.
func WithPolicies(defs []Definition, overrides map[string]FailurePolicy) ([]Definition, error) {
	out := make([]Definition, len(defs))
	copy(out, defs)
	for name, policy := range overrides {
		found := false
		for i := range out {
			if out[i].Name == name {
				out[i].OnFailure = policy
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("policy override for unknown stage: %s (stages: %s)", name, strings.Join(Names(defs), ", "))
		}
	}
	return out, nil
}
