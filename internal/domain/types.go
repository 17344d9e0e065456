// Package domain contains core business entities and types for medical report
// generation and social-benefit context classification in a telemedicine setting.
//
// Categories follow the Brazilian social-security framework: BPC/LOAS
// (Lei 8.742/93), auxílio-doença and aposentadoria por invalidez (INSS),
// perícia médica judicial, auxílio-acidente and isenção de imposto de renda
// por doença grave (Lei 7.713/88).
package domain

import (
	"errors"
	"fmt"
)

// BenefitCategory represents the benefit context a consultation is classified
// into. The report template, the required-field set and the conclusion wording
// all key off this value, so the enum is closed: every producer must emit one
// of these constants and every consumer may exhaustively switch on them.
type BenefitCategory string

const (
	// BPC is the continuous cash benefit for long-term disability preventing
	// independent living (BPC/LOAS).
	BPC BenefitCategory = "BPC"
	// INCAPACIDADE covers work-incapacity evaluations (auxílio-doença,
	// aposentadoria por invalidez).
	INCAPACIDADE BenefitCategory = "INCAPACIDADE"
	// PERICIA covers legal medical expertise (judicial perícia, nexo causal,
	// dano corporal).
	PERICIA BenefitCategory = "PERICIA"
	// ISENCAO_IR covers income-tax exemption for serious illness.
	ISENCAO_IR BenefitCategory = "ISENCAO_IR"
	// AUXILIO_ACIDENTE covers accident assistance (reduced work capacity
	// after consolidation of accident sequelae).
	AUXILIO_ACIDENTE BenefitCategory = "AUXILIO_ACIDENTE"
	// CLINICA_GERAL is the default when no benefit context reaches the
	// classification threshold.
	CLINICA_GERAL BenefitCategory = "CLINICA_GERAL"
)

// CategoryPriority is the documented tie-break order for the context
// classifier: when two categories match the same number of keyword groups the
// one appearing earlier in this slice wins. CLINICA_GERAL is last by
// construction since it is the below-threshold default.
var CategoryPriority = []BenefitCategory{
	PERICIA,
	INCAPACIDADE,
	BPC,
	AUXILIO_ACIDENTE,
	ISENCAO_IR,
	CLINICA_GERAL,
}

// CompletenessLevel grades how many of the classified category's required
// fields were actually extracted from the source text.
type CompletenessLevel string

const (
	COMPLETENESS_HIGH   CompletenessLevel = "HIGH"
	COMPLETENESS_MEDIUM CompletenessLevel = "MEDIUM"
	COMPLETENESS_LOW    CompletenessLevel = "LOW"
)

// SafetyLevel records which validation path produced the final report.
type SafetyLevel string

const (
	// SAFE means the generated draft passed validation without corrections.
	SAFE SafetyLevel = "SAFE"
	// CORRECTED_SAFE means hallucinated terms were found and corrected in place.
	CORRECTED_SAFE SafetyLevel = "CORRECTED_SAFE"
	// BASIC_SAFE means the draft was discarded and the fixed safe template was
	// used instead, either because extraction completeness was low or because
	// the validator found too many fabricated terms.
	BASIC_SAFE SafetyLevel = "BASIC_SAFE"
)

// Validation errors for medical data integrity
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidCategory     = errors.New("invalid benefit category")
	ErrInvalidCompleteness = errors.New("invalid completeness level")
	ErrInvalidSafetyLevel  = errors.New("invalid safety level")
	ErrEmptyInput          = errors.New("input text is empty")
)

// IsValid validates that the category is one of the closed enum values.
// The template selector fails loudly on anything else, so producers should
// validate before handing a category downstream.
func (c BenefitCategory) IsValid() bool {
	switch c {
	case BPC, INCAPACIDADE, PERICIA, ISENCAO_IR, AUXILIO_ACIDENTE, CLINICA_GERAL:
		return true
	default:
		return false
	}
}

// String returns the string representation of the category.
func (c BenefitCategory) String() string {
	return string(c)
}

// Description returns a human-readable description of the benefit context for
// report headers and audit logs.
func (c BenefitCategory) Description() string {
	switch c {
	case BPC:
		return "Benefício de Prestação Continuada (BPC/LOAS)"
	case INCAPACIDADE:
		return "Incapacidade laboral (auxílio-doença / aposentadoria por invalidez)"
	case PERICIA:
		return "Perícia médica legal"
	case ISENCAO_IR:
		return "Isenção de imposto de renda por doença grave"
	case AUXILIO_ACIDENTE:
		return "Auxílio-acidente"
	case CLINICA_GERAL:
		return "Consulta clínica geral"
	default:
		return "Categoria desconhecida"
	}
}

// LogFields returns structured logging fields for audit trails.
func (c BenefitCategory) LogFields() map[string]any {
	return map[string]any{
		"category":    string(c),
		"description": c.Description(),
		"is_valid":    c.IsValid(),
	}
}

// IsValid validates the completeness level.
func (cl CompletenessLevel) IsValid() bool {
	switch cl {
	case COMPLETENESS_HIGH, COMPLETENESS_MEDIUM, COMPLETENESS_LOW:
		return true
	default:
		return false
	}
}

// String returns the string representation of the completeness level.
func (cl CompletenessLevel) String() string {
	return string(cl)
}

// AllowsGeneration reports whether extraction completeness permits the
// category-specific generation path. LOW completeness forces the safe
// template, by contract with the report generator.
func (cl CompletenessLevel) AllowsGeneration() bool {
	switch cl {
	case COMPLETENESS_HIGH, COMPLETENESS_MEDIUM:
		return true
	default:
		return false
	}
}

// IsValid validates the safety level.
func (sl SafetyLevel) IsValid() bool {
	switch sl {
	case SAFE, CORRECTED_SAFE, BASIC_SAFE:
		return true
	default:
		return false
	}
}

// String returns the string representation of the safety level.
func (sl SafetyLevel) String() string {
	return string(sl)
}

// ParseCategory converts a string into a BenefitCategory, returning
// ErrInvalidCategory for anything outside the closed enum.
func ParseCategory(s string) (BenefitCategory, error) {
	c := BenefitCategory(s)
	if !c.IsValid() {
		return "", fmt.Errorf("parsing category %q: %w", s, ErrInvalidCategory)
	}
	return c, nil
}
