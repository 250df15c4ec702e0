package evalimport

import (
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// Issue is one validation finding. Message carries the English default text and a
// stable ID that locale files can translate; Data fills its template.
type Issue struct {
	Message *i18n.Message
	Data    map[string]any
}

// english renders issues with only the built-in default messages.
var english = i18n.NewBundle(language.English)

// String renders the issue in English.
func (i Issue) String() string {
	if i.Message == nil {
		return ""
	}
	loc := i18n.NewLocalizer(english, language.English.String())
	s, err := loc.Localize(&i18n.LocalizeConfig{DefaultMessage: i.Message, TemplateData: i.Data})
	if err != nil {
		return i.Message.Other
	}
	return s
}

func issue(m *i18n.Message, kv ...any) Issue {
	var data map[string]any
	if len(kv) > 0 {
		data = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			data[kv[i].(string)] = kv[i+1]
		}
	}
	return Issue{Message: m, Data: data}
}

func questionIssue(m *i18n.Message, position int, kv ...any) Issue {
	return issue(m, append([]any{"Position", position}, kv...)...)
}

// Syntax.
var (
	MsgInvalidJSON   = &i18n.Message{ID: "ImportInvalidJSON", Other: "Invalid JSON: {{.Detail}}"}
	MsgInvalidYAML   = &i18n.Message{ID: "ImportInvalidYAML", Other: "Invalid YAML: {{.Detail}}"}
	MsgNotAnObject   = &i18n.Message{ID: "ImportNotAnObject", Other: "The evaluation document must be an object"}
	MsgRequiredField = &i18n.Message{ID: "ImportRequiredField", Other: "Required field missing: {{.Field}}"}
)

// Top-level fields.
var (
	MsgTitleInvalid       = &i18n.Message{ID: "ImportTitleInvalid", Other: "Title must be a non-empty string"}
	MsgSubjectInvalid     = &i18n.Message{ID: "ImportSubjectInvalid", Other: "Subject must be a non-empty string"}
	MsgDateNotString      = &i18n.Message{ID: "ImportDateNotString", Other: "Date must be a string"}
	MsgDateFormat         = &i18n.Message{ID: "ImportDateFormat", Other: "Date must be in ISO format (YYYY-MM-DD)"}
	MsgDurationInvalid    = &i18n.Message{ID: "ImportDurationInvalid", Other: "Duration must be a positive number (in minutes)"}
	MsgTotalPointsInvalid = &i18n.Message{ID: "ImportTotalPointsInvalid", Other: "Total points must be a positive number"}
	MsgQuestionsNotArray  = &i18n.Message{ID: "ImportQuestionsNotArray", Other: "Questions must be an array"}
	MsgQuestionsEmpty     = &i18n.Message{ID: "ImportQuestionsEmpty", Other: "The evaluation must contain at least one question"}
	MsgPointsMismatch     = &i18n.Message{ID: "ImportPointsMismatch", Other: "Inconsistency: totalPoints ({{.Total}}) does not match the sum of question points ({{.Sum}})"}
	MsgIDInvalid          = &i18n.Message{ID: "ImportIDInvalid", Other: "id must be a string or a number"}
	MsgProfessorInvalid   = &i18n.Message{ID: "ImportProfessorInvalid", Other: "professorId must be a string"}
	MsgStatusInvalid      = &i18n.Message{ID: "ImportStatusInvalid", Other: "Status must be one of: 'draft', 'active', 'correcting', 'completed'"}
	MsgClassIDsNotArray   = &i18n.Message{ID: "ImportClassIDsNotArray", Other: "classIds must be an array"}
	MsgClassIDsNotStrings = &i18n.Message{ID: "ImportClassIDsNotStrings", Other: "All classIds elements must be strings"}
)

// Questions.
var (
	MsgQuestionNotObject        = &i18n.Message{ID: "ImportQuestionNotObject", Other: "Question {{.Position}}: must be an object"}
	MsgQuestionRequiredField    = &i18n.Message{ID: "ImportQuestionRequiredField", Other: "Question {{.Position}}: required field missing: {{.Field}}"}
	MsgQuestionStatementMissing = &i18n.Message{ID: "ImportQuestionStatementMissing", Other: "Question {{.Position}}: required field missing: statement or text"}
	MsgQuestionIDInvalid        = &i18n.Message{ID: "ImportQuestionIDInvalid", Other: "Question {{.Position}}: id must be a string or a number"}
	MsgQuestionNumberInvalid    = &i18n.Message{ID: "ImportQuestionNumberInvalid", Other: "Question {{.Position}}: number must be a number"}
	MsgQuestionNumberFraction   = &i18n.Message{ID: "ImportQuestionNumberFraction", Other: "Question {{.Position}}: number must be a whole number"}
	MsgQuestionStatementEmpty   = &i18n.Message{ID: "ImportQuestionStatementEmpty", Other: "Question {{.Position}}: statement must be a non-empty string"}
	MsgQuestionPointsInvalid    = &i18n.Message{ID: "ImportQuestionPointsInvalid", Other: "Question {{.Position}}: points must be a positive number"}
	MsgQuestionModelAnswer      = &i18n.Message{ID: "ImportQuestionModelAnswer", Other: "Question {{.Position}}: modelAnswer must be a string"}
	MsgQuestionLinesInvalid     = &i18n.Message{ID: "ImportQuestionLinesInvalid", Other: "Question {{.Position}}: estimatedLines must be a positive number"}
)

// Warnings.
var (
	MsgWarnNoID        = &i18n.Message{ID: "ImportWarnNoID", Other: "No id provided, one will be generated automatically"}
	MsgWarnNoProfessor = &i18n.Message{ID: "ImportWarnNoProfessor", Other: "No professorId provided, the current professor will be assigned"}
	MsgWarnNoStatus    = &i18n.Message{ID: "ImportWarnNoStatus", Other: "No status provided, the status will be set to 'draft'"}
	MsgWarnNoClasses   = &i18n.Message{ID: "ImportWarnNoClasses", Other: "No class assigned, classes can be added later"}
)

// Messages lists every message the engine can emit, for locale completeness checks.
func Messages() []*i18n.Message {
	return []*i18n.Message{
		MsgInvalidJSON, MsgInvalidYAML, MsgNotAnObject, MsgRequiredField,
		MsgTitleInvalid, MsgSubjectInvalid, MsgDateNotString, MsgDateFormat,
		MsgDurationInvalid, MsgTotalPointsInvalid, MsgQuestionsNotArray, MsgQuestionsEmpty,
		MsgPointsMismatch, MsgIDInvalid, MsgProfessorInvalid, MsgStatusInvalid,
		MsgClassIDsNotArray, MsgClassIDsNotStrings,
		MsgQuestionNotObject, MsgQuestionRequiredField, MsgQuestionStatementMissing,
		MsgQuestionIDInvalid, MsgQuestionNumberInvalid, MsgQuestionNumberFraction,
		MsgQuestionStatementEmpty, MsgQuestionPointsInvalid, MsgQuestionModelAnswer,
		MsgQuestionLinesInvalid,
		MsgWarnNoID, MsgWarnNoProfessor, MsgWarnNoStatus, MsgWarnNoClasses,
	}
}
