package domain

import (
	"context"
)

// FieldExtractor populates a PatientRecord from raw consultation text.
// The category determines the required-field set used for the completeness
// score; extraction itself is category independent.
type FieldExtractor interface {
	Extract(ctx context.Context, text string, category BenefitCategory) (*ExtractionResult, error)
}

// ContextClassifier scores raw text against per-category keyword groups and
// returns the winning category with its supporting evidence. Implementations
// must be deterministic and side-effect free.
type ContextClassifier interface {
	Classify(text string) (*ContextClassification, error)
}

// TemplateSelector maps a category to its prompt template, required-field list
// and conclusion phrasing. Unrecognized categories are an error, never a
// silent default.
type TemplateSelector interface {
	Select(category BenefitCategory) (*CategoryTemplate, error)
	RequiredFields(category BenefitCategory) ([]string, error)
}

// ReportGenerator turns a template plus extraction result into a ReportDraft,
// delegating prose to the external text-generation service. When completeness
// is LOW it must build the draft from the safe template instead.
type ReportGenerator interface {
	Generate(ctx context.Context, tmpl *CategoryTemplate, extraction *ExtractionResult, transcript string) (*ReportDraft, error)
}

// HallucinationValidator checks a draft against the source text set and
// produces the final, traceable report.
type HallucinationValidator interface {
	Validate(ctx context.Context, draft *ReportDraft, sources SourceSet) (*ValidationOutcome, error)
}

// SourceSet is the union of texts a report term may legitimately come from.
type SourceSet struct {
	Transcript string
	Notes      string
	Record     PatientRecord
}

// CategoryTemplate is the template selector's per-category entry.
type CategoryTemplate struct {
	Category           BenefitCategory `json:"category"`
	PromptTemplate     string          `json:"prompt_template"`
	RequiredFields     []string        `json:"required_fields"`
	ConclusionTemplate string          `json:"conclusion_template"`
}
