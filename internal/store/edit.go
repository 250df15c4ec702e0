package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/evalforge/internal/model"
)

// UpdateEvaluation applies a partial update to an evaluation and returns the
// stored result. Total points are left alone: they follow the questions.
func (s *Store) UpdateEvaluation(id string, u model.EvaluationUpdate) (model.Evaluation, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := evaluationExists(tx, id); err != nil {
		return model.Evaluation{}, err
	}

	sets := []string{"updated_at = ?"}
	args := []any{time.Now()}
	if u.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *u.Title)
	}
	if u.Subject != nil {
		sets = append(sets, "subject = ?")
		args = append(args, *u.Subject)
	}
	if u.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, *u.Date)
	}
	if u.Duration != nil {
		sets = append(sets, "duration = ?")
		args = append(args, *u.Duration)
	}
	if u.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *u.Status)
	}
	args = append(args, id)
	if _, err := tx.Exec(`UPDATE evaluations SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
		return model.Evaluation{}, fmt.Errorf("update evaluation: %w", err)
	}

	if u.ClassIDs != nil {
		if err := checkClasses(tx, *u.ClassIDs); err != nil {
			return model.Evaluation{}, err
		}
		if _, err := tx.Exec(`DELETE FROM evaluation_classes WHERE evaluation_id = ?`, id); err != nil {
			return model.Evaluation{}, fmt.Errorf("unlink classes: %w", err)
		}
		for _, classID := range *u.ClassIDs {
			_, err := tx.Exec(
				`INSERT OR IGNORE INTO evaluation_classes (evaluation_id, class_id) VALUES (?, ?)`,
				id, classID,
			)
			if err != nil {
				return model.Evaluation{}, fmt.Errorf("link class %s: %w", classID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Evaluation{}, fmt.Errorf("commit evaluation: %w", err)
	}
	slog.Info("updated evaluation", "id", id)
	return s.GetEvaluation(id)
}

// ListQuestions returns an evaluation's questions in order.
func (s *Store) ListQuestions(evaluationID string) ([]model.Question, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM evaluations WHERE id = ?`, evaluationID).Scan(&n); err != nil {
		return nil, fmt.Errorf("check evaluation %s: %w", evaluationID, err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.getQuestions(evaluationID)
}

// AddQuestion appends a question to an evaluation and raises its total points
// by the question's points, so the total keeps matching the questions. A zero
// Number becomes the question's position and a missing ID is assigned.
func (s *Store) AddQuestion(evaluationID string, q model.Question) (model.Question, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return q, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := evaluationExists(tx, evaluationID); err != nil {
		return q, err
	}

	var position int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM questions WHERE evaluation_id = ?`, evaluationID).Scan(&position); err != nil {
		return q, fmt.Errorf("count questions: %w", err)
	}
	if q.ID == "" {
		q.ID = newID()
	}
	if q.Number == 0 {
		q.Number = position + 1
	}
	if q.EstimatedLines == 0 {
		q.EstimatedLines = 5
	}

	_, err = tx.Exec(
		`INSERT INTO questions (evaluation_id, position, question_key, number, statement, model_answer, points, estimated_lines)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		evaluationID, position, q.ID, q.Number, q.Statement, q.ModelAnswer, q.Points, q.EstimatedLines,
	)
	if err != nil {
		return q, fmt.Errorf("insert question: %w", err)
	}
	_, err = tx.Exec(
		`UPDATE evaluations SET total_points = total_points + ?, updated_at = ? WHERE id = ?`,
		q.Points, time.Now(), evaluationID,
	)
	if err != nil {
		return q, fmt.Errorf("update total points: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return q, fmt.Errorf("commit question: %w", err)
	}
	slog.Info("added question", "evaluation_id", evaluationID, "question_id", q.ID, "points", q.Points)
	return q, nil
}

// UpdateClass applies a partial update to a class and returns the stored result.
func (s *Store) UpdateClass(id string, u model.ClassUpdate) (model.Class, error) {
	sets := []string{}
	var args []any
	if u.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *u.Name)
	}
	if u.Subject != nil {
		sets = append(sets, "subject = ?")
		args = append(args, *u.Subject)
	}
	if len(sets) > 0 {
		args = append(args, id)
		res, err := s.db.Exec(`UPDATE classes SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
		if err != nil {
			return model.Class{}, fmt.Errorf("update class: %w", err)
		}
		if err := expectOneRow(res); err != nil {
			return model.Class{}, err
		}
		slog.Info("updated class", "id", id)
	}
	return s.GetClass(id)
}

func evaluationExists(tx *sql.Tx, id string) error {
	var n int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM evaluations WHERE id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("check evaluation %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
