package domain

import (
	"time"
)

// Patient record field names. The extractor populates a PatientRecord keyed by
// these constants; a field is present only when a pattern rule (or the
// LLM-assisted pass) found it in the source text.
const (
	FieldNome                 = "nome"
	FieldIdade                = "idade"
	FieldProfissao            = "profissao"
	FieldQueixaPrincipal      = "queixa_principal"
	FieldInicioSintomas       = "inicio_sintomas"
	FieldLimitacoesFuncionais = "limitacoes_funcionais"
	FieldDependenciaAVD       = "dependencia_avd"
	FieldNecessidadeCuidador  = "necessidade_cuidador"
	FieldTratamentos          = "tratamentos"
	FieldCitacoes             = "citacoes"
)

// NotInformed is the placeholder rendered for absent fields. Fields are never
// guessed: either a value traceable to the source text, or this marker.
const NotInformed = "[Não informado]"

// FieldValue is a single extracted field with its provenance. SourceSpan is
// the exact sentence fragment the value was captured from and RuleID names the
// pattern rule that fired, which supports offline precision/recall measurement
// of the rule tables.
type FieldValue struct {
	Value      string  `json:"value"`
	SourceSpan string  `json:"source_span"`
	RuleID     string  `json:"rule_id"`
	Confidence float64 `json:"confidence"`
}

// PatientRecord maps field names to extracted values. Absent keys mean the
// field was not found; consumers render NotInformed, never a fabricated value.
type PatientRecord map[string]FieldValue

// Get returns the value for a field or NotInformed when absent.
func (r PatientRecord) Get(field string) string {
	if v, ok := r[field]; ok {
		return v.Value
	}
	return NotInformed
}

// Has reports whether the field was extracted.
func (r PatientRecord) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// Values returns the extracted values only, for traceability checks.
func (r PatientRecord) Values() []string {
	out := make([]string, 0, len(r))
	for _, v := range r {
		out = append(out, v.Value)
	}
	return out
}

// ExtractionResult is the output of the field extractor. Confidence is the
// fraction of the classified category's required fields that are present.
type ExtractionResult struct {
	Record        PatientRecord     `json:"record"`
	Completeness  CompletenessLevel `json:"completeness"`
	Confidence    float64           `json:"confidence"`
	MissingFields []string          `json:"missing_fields,omitempty"`
	RulesVersion  string            `json:"rules_version"`
}

// CategoryScore holds the per-category evidence gathered during
// classification, kept for auditability of the decision.
type CategoryScore struct {
	Category        BenefitCategory `json:"category"`
	GroupsMatched   int             `json:"groups_matched"`
	MatchedKeywords []string        `json:"matched_keywords,omitempty"`
}

// ContextClassification is the classifier output. ConfidenceTier is the count
// of distinct keyword groups matched for the winning category.
type ContextClassification struct {
	Category        BenefitCategory `json:"category"`
	ConfidenceTier  int             `json:"confidence_tier"`
	MatchedKeywords []string        `json:"matched_keywords,omitempty"`
	AllScores       []CategoryScore `json:"all_scores,omitempty"`
	RulesVersion    string          `json:"rules_version"`
}

// Report section names, in rendering order.
const (
	SectionIdentification = "identification"
	SectionChiefComplaint = "chief_complaint"
	SectionHistory        = "history"
	SectionFindings       = "findings"
	SectionConduct        = "conduct"
	SectionPrognosis      = "prognosis"
	SectionDiagnosisCode  = "diagnosis_code"
	SectionConclusion     = "conclusion"
)

// SectionOrder is the canonical rendering order of report sections.
var SectionOrder = []string{
	SectionIdentification,
	SectionChiefComplaint,
	SectionHistory,
	SectionFindings,
	SectionConduct,
	SectionPrognosis,
	SectionDiagnosisCode,
	SectionConclusion,
}

// ReportDraft holds generated prose keyed by section name, before validation.
// FallbackReason is set when the draft came from the safe template for a
// reason other than low completeness, such as a text generation outage.
type ReportDraft struct {
	Sections       map[string]string `json:"sections"`
	Category       BenefitCategory   `json:"category"`
	Generated      bool              `json:"generated"` // false when built from the safe template
	Model          string            `json:"model,omitempty"`
	FallbackReason string            `json:"fallback_reason,omitempty"`
}

// Correction actions applied by the hallucination validator.
const (
	ActionRemoved  = "REMOVED"
	ActionReplaced = "REPLACED"
	ActionFlagged  = "FLAGGED"
)

// Correction records one validator intervention on the draft.
type Correction struct {
	Term     string `json:"term"`
	Category string `json:"category"` // sensitive-term category (medicamento, exame, ...)
	Action   string `json:"action"`
	Section  string `json:"section,omitempty"`
}

// ValidationOutcome is the validator output: the final report text, the safety
// level of the path that produced it and every correction applied.
type ValidationOutcome struct {
	SafetyLevel    SafetyLevel  `json:"safety_level"`
	Corrections    []Correction `json:"corrections,omitempty"`
	FinalReport    string       `json:"final_report"`
	FallbackReason string       `json:"fallback_reason,omitempty"`
}

// ConsultationRequest is the pipeline input. At least one of Text, Audio or
// Documents must be provided; Audio and Documents are resolved into text
// through the external transcription and OCR services.
type ConsultationRequest struct {
	PatientNotes string   `json:"patient_notes,omitempty"`
	Audio        []byte   `json:"-"`
	Documents    [][]byte `json:"-"`
	LanguageHint string   `json:"language_hint,omitempty"`
}

// QualityMetadata is the audit block attached to every response.
type QualityMetadata struct {
	SafetyLevel      SafetyLevel       `json:"safety_level"`
	Completeness     CompletenessLevel `json:"completeness"`
	Confidence       float64           `json:"confidence"`
	PipelinePath     []string          `json:"pipeline_path"`
	Corrections      []Correction      `json:"corrections,omitempty"`
	FallbackReason   string            `json:"fallback_reason,omitempty"`
	RulesVersion     string            `json:"rules_version"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
}

// ConsultationResult is the pipeline output returned to the API layer.
type ConsultationResult struct {
	RequestID      string                `json:"request_id"`
	Transcript     string                `json:"transcript,omitempty"`
	DocumentsText  string                `json:"documents_text,omitempty"`
	Record         PatientRecord         `json:"record"`
	Classification ContextClassification `json:"classification"`
	Report         string                `json:"report"`
	Quality        QualityMetadata       `json:"quality"`
	CreatedAt      time.Time             `json:"created_at"`
}
