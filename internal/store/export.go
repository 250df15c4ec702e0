package store

import (
	"fmt"

	"github.com/pavelanni/evalforge/internal/model"
)

// ExportEvaluations returns every stored evaluation in full, newest first.
func (s *Store) ExportEvaluations() ([]model.Evaluation, error) {
	summaries, err := s.ListEvaluations("")
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}

	evaluations := make([]model.Evaluation, 0, len(summaries))
	for _, sum := range summaries {
		ev, err := s.GetEvaluation(sum.ID)
		if err != nil {
			return nil, fmt.Errorf("get evaluation %s: %w", sum.ID, err)
		}
		evaluations = append(evaluations, ev)
	}
	return evaluations, nil
}
