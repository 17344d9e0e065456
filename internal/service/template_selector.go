package service

import (
	"fmt"

	"github.com/medreport-server/internal/domain"
	"github.com/medreport-server/internal/rules"
)

// TemplateSelectorService resolves a benefit category into its report
// template and required-field list from the active rule set. An invalid
// category is an error: a silent default here would send a work-incapacity
// consultation through the wrong template.
type TemplateSelectorService struct {
	store *rules.Store
}

// NewTemplateSelectorService creates a template selector.
func NewTemplateSelectorService(store *rules.Store) *TemplateSelectorService {
	return &TemplateSelectorService{store: store}
}

// Select returns the template for a category. The required-field list is
// copied in from the category rules so templates and completeness grading
// always agree.
func (s *TemplateSelectorService) Select(category domain.BenefitCategory) (*domain.CategoryTemplate, error) {
	if !category.IsValid() {
		return nil, fmt.Errorf("selecting template for %q: %w", category, domain.ErrInvalidCategory)
	}

	cr := s.store.Active().Source.Categories[category]
	tmpl := cr.Template
	tmpl.Category = category
	tmpl.RequiredFields = append([]string(nil), cr.RequiredFields...)

	return &tmpl, nil
}

// RequiredFields returns the required-field list for a category.
func (s *TemplateSelectorService) RequiredFields(category domain.BenefitCategory) ([]string, error) {
	tmpl, err := s.Select(category)
	if err != nil {
		return nil, err
	}
	return tmpl.RequiredFields, nil
}
