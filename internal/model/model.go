package model

import (
	"context"
	"time"
)

// EvaluationStatus is the lifecycle state of an evaluation.
type EvaluationStatus string

const (
	StatusDraft      EvaluationStatus = "draft"
	StatusActive     EvaluationStatus = "active"
	StatusCorrecting EvaluationStatus = "correcting"
	StatusCompleted  EvaluationStatus = "completed"
)

// Statuses lists every valid evaluation status in lifecycle order.
var Statuses = []EvaluationStatus{StatusDraft, StatusActive, StatusCorrecting, StatusCompleted}

// Valid reports whether s is one of the known statuses.
func (s EvaluationStatus) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// Question is a single question of an evaluation.
type Question struct {
	ID             string  `json:"id"`
	Number         int     `json:"number"`
	Statement      string  `json:"statement"`
	ModelAnswer    string  `json:"modelAnswer"`
	Points         float64 `json:"points"`
	EstimatedLines float64 `json:"estimatedLines"`
}

// Evaluation is the canonical evaluation record. Every field is populated once it
// leaves the import normalizer.
type Evaluation struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Subject     string           `json:"subject"`
	Date        string           `json:"date"`
	Duration    float64          `json:"duration"`
	TotalPoints float64          `json:"totalPoints"`
	ProfessorID string           `json:"professorId"`
	ClassIDs    []string         `json:"classIds"`
	Status      EvaluationStatus `json:"status"`
	Questions   []Question       `json:"questions"`
}

// EvaluationSummary is a list row for an evaluation.
type EvaluationSummary struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Subject       string           `json:"subject"`
	Date          string           `json:"date"`
	TotalPoints   float64          `json:"totalPoints"`
	Status        EvaluationStatus `json:"status"`
	QuestionCount int              `json:"questionCount"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// EvaluationUpdate lists the evaluation fields to change; nil fields keep their
// stored value. A non-nil ClassIDs replaces every class link.
type EvaluationUpdate struct {
	Title    *string
	Subject  *string
	Date     *string
	Duration *float64
	Status   *EvaluationStatus
	ClassIDs *[]string
}

// Class groups students taught by a professor in one subject.
type Class struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Subject     string    `json:"subject"`
	ProfessorID string    `json:"professorId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ClassUpdate lists the class fields to change; nil fields keep their stored value.
type ClassUpdate struct {
	Name    *string
	Subject *string
}

// ServerConfig holds runtime parameters set via CLI flags.
type ServerConfig struct {
	DefaultProfessorID string // used when a request carries no professor header
	Lang               string // fallback UI language
	MaxUploadBytes     int64  // limit for pasted or uploaded import documents
}

type professorCtxKey struct{}

// ContextWithProfessor stores the acting professor ID in the request context.
func ContextWithProfessor(ctx context.Context, professorID string) context.Context {
	return context.WithValue(ctx, professorCtxKey{}, professorID)
}

// ProfessorFromContext retrieves the acting professor ID, or "" if not set.
func ProfessorFromContext(ctx context.Context) string {
	id, _ := ctx.Value(professorCtxKey{}).(string)
	return id
}
