// Package service implements the consultation pipeline: field extraction,
// context classification, template selection, controlled report generation
// and hallucination validation, plus the orchestrator that runs them in
// sequence for each consultation.
package service

import (
	"github.com/sirupsen/logrus"

	"github.com/medreport-server/internal/domain"
	"github.com/medreport-server/internal/rules"
	"github.com/medreport-server/pkg/textnorm"
)

// ContextClassifierService scores input text against the per-category
// keyword groups. The confidence tier of a category is the number of
// distinct groups with at least one matching term; a group counts once no
// matter how many of its terms appear. Classification is a pure function of
// the input text and the active rule set.
type ContextClassifierService struct {
	logger *logrus.Logger
	store  *rules.Store
	config domain.PipelineConfig
}

// NewContextClassifierService creates a context classifier.
func NewContextClassifierService(store *rules.Store, config domain.PipelineConfig, logger *logrus.Logger) *ContextClassifierService {
	return &ContextClassifierService{
		logger: logger,
		store:  store,
		config: config,
	}
}

// Classify determines the benefit category of the consultation text.
// Categories are evaluated in the documented priority order, so on equal
// tiers the higher-priority category wins. When no category reaches the
// configured minimum the result is CLINICA_GERAL with the evidence it
// gathered, possibly none.
func (s *ContextClassifierService) Classify(text string) (*domain.ContextClassification, error) {
	compiled := s.store.Active()
	folded := textnorm.Fold(text)

	allScores := make([]domain.CategoryScore, 0, len(domain.CategoryPriority))
	best := domain.CategoryScore{Category: domain.CLINICA_GERAL}

	for _, cat := range domain.CategoryPriority {
		score := domain.CategoryScore{Category: cat}
		for _, group := range compiled.Keywords[cat] {
			groupMatched := false
			for _, term := range group.FoldedTerms {
				if textnorm.ContainsWord(folded, term) {
					groupMatched = true
					score.MatchedKeywords = append(score.MatchedKeywords, term)
				}
			}
			if groupMatched {
				score.GroupsMatched++
			}
		}
		allScores = append(allScores, score)

		// Strictly greater keeps the priority-order tie-break.
		if score.GroupsMatched > best.GroupsMatched {
			best = score
		}
	}

	if best.GroupsMatched < s.config.MinGroupsForCategory {
		best = domain.CategoryScore{Category: domain.CLINICA_GERAL}
		for _, sc := range allScores {
			if sc.Category == domain.CLINICA_GERAL {
				best = sc
				break
			}
		}
	}

	classification := &domain.ContextClassification{
		Category:        best.Category,
		ConfidenceTier:  best.GroupsMatched,
		MatchedKeywords: best.MatchedKeywords,
		AllScores:       allScores,
		RulesVersion:    s.store.Version(),
	}

	s.logger.WithFields(logrus.Fields{
		"category":         classification.Category.String(),
		"confidence_tier":  classification.ConfidenceTier,
		"matched_keywords": classification.MatchedKeywords,
		"rules_version":    classification.RulesVersion,
	}).Debug("Consultation classified")

	return classification, nil
}
