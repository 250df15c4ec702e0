// Package evalimport turns a pasted or uploaded evaluation document into a
// canonical model.Evaluation: Parse, then Validate, then (after the professor
// confirms) Normalize. Every stage is pure and safe for concurrent use.
package evalimport

import (
	"encoding/json"
	"math"

	"github.com/pavelanni/evalforge/internal/model"
)

// requiredFields must be present and non-null before any other check runs.
var requiredFields = []string{"title", "subject", "date", "duration", "totalPoints", "questions"}

// Result is the outcome of validating one document. Data is the working copy with
// aliases resolved and coercions applied; it is filled even when Valid is false so
// that a preview can still be shown.
type Result struct {
	Valid    bool
	Errors   []Issue
	Warnings []Issue
	Data     Document
}

// ErrorMessages renders the errors in English, in discovery order.
func (r Result) ErrorMessages() []string { return render(r.Errors) }

// WarningMessages renders the warnings in English, in discovery order.
func (r Result) WarningMessages() []string { return render(r.Warnings) }

func render(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.String())
	}
	return out
}

// MarshalJSON encodes the result in the shape the import screen consumes.
func (r Result) MarshalJSON() ([]byte, error) {
	data := r.Data
	if data == nil {
		data = Document{}
	}
	return json.Marshal(struct {
		IsValid  bool     `json:"isValid"`
		Errors   []string `json:"errors"`
		Warnings []string `json:"warnings"`
		Data     Document `json:"data"`
	}{r.Valid, r.ErrorMessages(), r.WarningMessages(), data})
}

// Validate parses raw JSON text and validates it. Malformed input is reported in
// the result, never as an error.
func Validate(raw string) Result {
	doc, err := Parse(raw)
	if err != nil {
		return parseFailure(err)
	}
	return Check(doc)
}

// ValidateYAML is Validate for YAML text.
func ValidateYAML(raw string) Result {
	doc, err := ParseYAML(raw)
	if err != nil {
		return parseFailure(err)
	}
	return Check(doc)
}

func parseFailure(err error) Result {
	pe := err.(*ParseError)
	return Result{Errors: []Issue{pe.Issue}, Data: Document{}}
}

// Check validates an already decoded document. doc itself is not modified.
func Check(doc Document) Result {
	data := doc.clone()
	res := Result{Data: data}

	for _, f := range requiredFields {
		if !present(data, f) {
			res.Errors = append(res.Errors, issue(MsgRequiredField, "Field", f))
		}
	}
	if len(res.Errors) > 0 {
		return res
	}

	if !nonEmptyString(data["title"]) {
		res.Errors = append(res.Errors, issue(MsgTitleInvalid))
	}
	if !nonEmptyString(data["subject"]) {
		res.Errors = append(res.Errors, issue(MsgSubjectInvalid))
	}

	if date, ok := asString(data["date"]); !ok {
		res.Errors = append(res.Errors, issue(MsgDateNotString))
	} else if !isISODate(date) {
		res.Errors = append(res.Errors, issue(MsgDateFormat))
	}

	if s, ok := asString(data["duration"]); ok {
		if f, ok := parseNumericString(s); ok && f > 0 {
			data["duration"] = f
		} else {
			res.Errors = append(res.Errors, issue(MsgDurationInvalid))
		}
	} else if !positive(data["duration"]) {
		res.Errors = append(res.Errors, issue(MsgDurationInvalid))
	}

	if !positive(data["totalPoints"]) {
		res.Errors = append(res.Errors, issue(MsgTotalPointsInvalid))
	}

	if questions, ok := asArray(data["questions"]); !ok {
		res.Errors = append(res.Errors, issue(MsgQuestionsNotArray))
	} else if len(questions) == 0 {
		res.Errors = append(res.Errors, issue(MsgQuestionsEmpty))
	} else {
		res.Errors = append(res.Errors, checkQuestions(questions)...)
		if total, ok := asNumber(data["totalPoints"]); ok {
			if sum := sumPoints(questions); !samePoints(sum, total) {
				res.Errors = append(res.Errors, issue(MsgPointsMismatch,
					"Total", formatNumber(total), "Sum", formatNumber(sum)))
			}
		}
	}

	res.Warnings = missingFieldWarnings(data)
	res.Errors = append(res.Errors, checkOptionalFields(data)...)

	res.Valid = len(res.Errors) == 0
	return res
}

// checkOptionalFields type-checks optional fields that carry a value. Blank values
// were already reported as warnings.
func checkOptionalFields(data Document) []Issue {
	var errs []Issue

	if v := data["id"]; !blank(v) {
		switch t := v.(type) {
		case string:
		case float64:
			data["id"] = formatNumber(t)
		default:
			errs = append(errs, issue(MsgIDInvalid))
		}
	}

	if v := data["professorId"]; !blank(v) {
		if _, ok := asString(v); !ok {
			errs = append(errs, issue(MsgProfessorInvalid))
		}
	}

	if v := data["status"]; !blank(v) {
		if s, ok := asString(v); !ok || !model.EvaluationStatus(s).Valid() {
			errs = append(errs, issue(MsgStatusInvalid))
		}
	}

	if v := data["classIds"]; !blank(v) {
		ids, ok := asArray(v)
		if !ok {
			errs = append(errs, issue(MsgClassIDsNotArray))
		} else {
			for _, id := range ids {
				if _, ok := asString(id); !ok {
					errs = append(errs, issue(MsgClassIDsNotStrings))
					break
				}
			}
		}
	}

	return errs
}

// sumPoints adds the points of every question that has a valid value; questions
// with missing or invalid points count as zero and are reported on their own.
func sumPoints(questions []any) float64 {
	var sum float64
	for _, q := range questions {
		obj, ok := asObject(q)
		if !ok {
			continue
		}
		if p, ok := asNumber(obj["points"]); ok && p > 0 {
			sum += p
		}
	}
	return sum
}

// pointsScale is the precision point totals are compared at: six decimal places.
const pointsScale = 1e6

// samePoints compares point totals at a fixed precision, so binary rounding of
// fractional points such as 0.1 + 0.2 matches 0.3 while any real difference,
// however large the total, does not.
func samePoints(a, b float64) bool {
	return math.Round(a*pointsScale) == math.Round(b*pointsScale)
}
