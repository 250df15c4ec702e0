package evalimport

import (
	"fmt"

	"github.com/nicksnyder/go-i18n/v2/i18n"

	"github.com/pavelanni/evalforge/internal/model"
)

// Default values shared by validation warnings and normalization.
const (
	DefaultDuration       = 60.0
	DefaultEstimatedLines = 5.0
	DefaultStatus         = model.StatusDraft

	// UnassignedProfessor is used when no professor is configured for the normalizer.
	UnassignedProfessor = "unassigned"
)

// fieldDefault describes an optional top-level field: the warning raised when it
// is blank and the value the normalizer substitutes.
type fieldDefault struct {
	field   string
	warning *i18n.Message // nil: absence is not worth a warning
	value   func(n *Normalizer) any
}

// evaluationDefaults is ordered the way warnings are reported.
var evaluationDefaults = []fieldDefault{
	{field: "id", warning: MsgWarnNoID, value: func(n *Normalizer) any { return n.newID() }},
	{field: "professorId", warning: MsgWarnNoProfessor, value: func(n *Normalizer) any { return n.professorID }},
	{field: "status", warning: MsgWarnNoStatus, value: func(*Normalizer) any { return string(DefaultStatus) }},
	{field: "classIds", warning: MsgWarnNoClasses, value: func(*Normalizer) any { return []any{} }},
	{field: "date", value: func(n *Normalizer) any { return n.now().Format(dateLayout) }},
	{field: "duration", value: func(*Normalizer) any { return DefaultDuration }},
	{field: "title", value: func(*Normalizer) any { return "" }},
	{field: "subject", value: func(*Normalizer) any { return "" }},
	{field: "totalPoints", value: func(*Normalizer) any { return 0.0 }},
	{field: "questions", value: func(*Normalizer) any { return []any{} }},
}

// questionDefault is the per-question counterpart of fieldDefault; position is
// the 1-based index of the question in the document.
type questionDefault struct {
	field string
	value func(position int) any
}

var questionDefaults = []questionDefault{
	{field: "id", value: func(position int) any { return fmt.Sprintf("q%d", position) }},
	{field: "number", value: func(position int) any { return float64(position) }},
	{field: "statement", value: func(int) any { return "" }},
	{field: "modelAnswer", value: func(int) any { return "" }},
	{field: "points", value: func(int) any { return 0.0 }},
	{field: "estimatedLines", value: func(int) any { return DefaultEstimatedLines }},
}

// missingFieldWarnings reports a warning for every blank optional field that has one.
func missingFieldWarnings(doc Document) []Issue {
	var warnings []Issue
	for _, d := range evaluationDefaults {
		if d.warning != nil && blank(doc[d.field]) {
			warnings = append(warnings, issue(d.warning))
		}
	}
	return warnings
}
