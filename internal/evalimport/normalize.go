package evalimport

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/evalforge/internal/model"
)

// ErrInvalidDraft is returned when Normalize is handed a result that did not pass
// validation. It signals a caller bug, not bad input.
var ErrInvalidDraft = errors.New("evalimport: normalize called on an invalid draft")

// Normalizer fills defaults into validated documents.
type Normalizer struct {
	now         func() time.Time
	newID       func() string
	professorID string
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock sets the clock used for the default date.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

// WithIDGenerator sets the generator for missing evaluation IDs.
func WithIDGenerator(gen func() string) Option {
	return func(n *Normalizer) { n.newID = gen }
}

// WithProfessor sets the professor assigned to drafts that name none.
func WithProfessor(id string) Option {
	return func(n *Normalizer) {
		if id != "" {
			n.professorID = id
		}
	}
}

// NewNormalizer returns a Normalizer using the wall clock and time-ordered UUIDs.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		now:         time.Now,
		newID:       newUUID,
		professorID: UnassignedProfessor,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Normalize converts a validated result into a fully populated evaluation using
// the default Normalizer.
func Normalize(res Result) (model.Evaluation, error) {
	return NewNormalizer().Normalize(res)
}

// Normalize converts a validated result into a fully populated evaluation.
func (n *Normalizer) Normalize(res Result) (model.Evaluation, error) {
	if !res.Valid || res.Data == nil {
		return model.Evaluation{}, ErrInvalidDraft
	}
	return n.normalize(res.Data.clone()), nil
}

func (n *Normalizer) normalize(doc Document) model.Evaluation {
	for _, d := range evaluationDefaults {
		if blank(doc[d.field]) {
			doc[d.field] = d.value(n)
		}
	}

	raw, _ := asArray(doc["questions"])
	questions := make([]model.Question, 0, len(raw))
	for i, q := range raw {
		obj, ok := asObject(q)
		if !ok {
			obj = map[string]any{}
		}
		questions = append(questions, normalizeQuestion(obj, i+1))
	}

	classIDs := make([]string, 0)
	if ids, ok := asArray(doc["classIds"]); ok {
		for _, id := range ids {
			if s, ok := asString(id); ok {
				classIDs = append(classIDs, s)
			}
		}
	}

	return model.Evaluation{
		ID:          stringValue(doc["id"]),
		Title:       stringValue(doc["title"]),
		Subject:     stringValue(doc["subject"]),
		Date:        stringValue(doc["date"]),
		Duration:    numberValue(doc["duration"], DefaultDuration),
		TotalPoints: numberValue(doc["totalPoints"], 0),
		ProfessorID: stringValue(doc["professorId"]),
		ClassIDs:    classIDs,
		Status:      model.EvaluationStatus(stringValue(doc["status"])),
		Questions:   questions,
	}
}

func normalizeQuestion(q map[string]any, position int) model.Question {
	if blank(q["statement"]) && !blank(q["text"]) {
		q["statement"] = q["text"]
	}
	for _, d := range questionDefaults {
		if blank(q[d.field]) {
			q[d.field] = d.value(position)
		}
	}
	return model.Question{
		ID:             stringValue(q["id"]),
		Number:         int(numberValue(q["number"], float64(position))),
		Statement:      stringValue(q["statement"]),
		ModelAnswer:    stringValue(q["modelAnswer"]),
		Points:         numberValue(q["points"], 0),
		EstimatedLines: numberValue(q["estimatedLines"], DefaultEstimatedLines),
	}
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return formatNumber(t)
	}
	return ""
}

func numberValue(v any, fallback float64) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		if f, ok := parseNumericString(t); ok {
			return f
		}
	}
	return fallback
}
