package evalimport

import "math"

// checkQuestions validates each question in place. Errors from every question are
// flattened into one list, each prefixed with the question's 1-based position.
func checkQuestions(questions []any) []Issue {
	var errs []Issue
	for i, raw := range questions {
		pos := i + 1
		q, ok := asObject(raw)
		if !ok {
			errs = append(errs, questionIssue(MsgQuestionNotObject, pos))
			continue
		}

		// Older exports call the statement "text".
		if present(q, "text") && !present(q, "statement") {
			q["statement"] = q["text"]
		}

		for _, f := range []string{"id", "points"} {
			if !present(q, f) {
				errs = append(errs, questionIssue(MsgQuestionRequiredField, pos, "Field", f))
			}
		}
		if !present(q, "statement") {
			errs = append(errs, questionIssue(MsgQuestionStatementMissing, pos))
		}

		if present(q, "id") {
			switch id := q["id"].(type) {
			case string:
			case float64:
				q["id"] = formatNumber(id)
			default:
				errs = append(errs, questionIssue(MsgQuestionIDInvalid, pos))
			}
		}

		if present(q, "number") {
			if n, ok := asNumber(q["number"]); !ok {
				errs = append(errs, questionIssue(MsgQuestionNumberInvalid, pos))
			} else if n != math.Trunc(n) {
				errs = append(errs, questionIssue(MsgQuestionNumberFraction, pos))
			}
		}

		if present(q, "statement") && !nonEmptyString(q["statement"]) {
			errs = append(errs, questionIssue(MsgQuestionStatementEmpty, pos))
		}

		if present(q, "points") && !positive(q["points"]) {
			errs = append(errs, questionIssue(MsgQuestionPointsInvalid, pos))
		}

		if present(q, "modelAnswer") {
			if _, ok := asString(q["modelAnswer"]); !ok {
				errs = append(errs, questionIssue(MsgQuestionModelAnswer, pos))
			}
		}

		if present(q, "estimatedLines") && !positive(q["estimatedLines"]) {
			errs = append(errs, questionIssue(MsgQuestionLinesInvalid, pos))
		}
	}
	return errs
}
