package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/evalforge/internal/evalimport"
	"github.com/pavelanni/evalforge/internal/i18n"
	"github.com/pavelanni/evalforge/internal/model"
	"github.com/pavelanni/evalforge/internal/store"
)

const quizJSON = `{
	"title": "Quiz",
	"subject": "Math",
	"date": "2025-01-15",
	"duration": 60,
	"totalPoints": 10,
	"questions": [
		{"id": 1, "text": "2+2?", "points": 4},
		{"id": "q2", "statement": "3*3?", "points": 6}
	]
}`

const quizYAML = `title: Quiz
subject: Math
date: 2025-01-15
duration: "45"
totalPoints: 10
questions:
  - id: q1
    statement: "2+2?"
    points: 10
`

func TestMain(m *testing.M) {
	if err := i18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) (http.Handler, *store.Store) {
	t.Helper()
	s, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	h, err := New(s, model.ServerConfig{
		DefaultProfessorID: "prof-default",
		Lang:               "en",
		MaxUploadBytes:     4096,
	}, evalimport.WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(i18n.Middleware("en"))
	h.Routes(r)
	return r, s
}

func do(t *testing.T, srv http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestValidateEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/evaluations/validate", quizJSON, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got validationResponse
	decode(t, rec, &got)
	assert.True(t, got.IsValid)
	assert.Empty(t, got.Errors)
	assert.NotNil(t, got.Errors)
	assert.Len(t, got.Warnings, 4)
	assert.Equal(t, "2+2?", got.Data["questions"].([]any)[0].(map[string]any)["statement"])
	assert.Equal(t, "1", got.Data["questions"].([]any)[0].(map[string]any)["id"])
}

func TestValidateEndpointSyntaxError(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/evaluations/validate", `{"title":`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]any
	decode(t, rec, &raw)
	assert.Equal(t, false, raw["isValid"])
	assert.Equal(t, map[string]any{}, raw["data"])
	errs := raw["errors"].([]any)
	require.Len(t, errs, 1)
	assert.True(t, strings.HasPrefix(errs[0].(string), "Invalid JSON: "), errs[0])
	assert.Equal(t, []any{}, raw["warnings"])
}

func TestValidateEndpointLocalized(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/evaluations/validate", `{"title": "Quiz"}`,
		map[string]string{"Accept-Language": "fr-FR,fr;q=0.9"})
	require.Equal(t, http.StatusOK, rec.Code)

	var got validationResponse
	decode(t, rec, &got)
	assert.False(t, got.IsValid)
	assert.Equal(t, []string{
		"Champ requis manquant : subject",
		"Champ requis manquant : date",
		"Champ requis manquant : duration",
		"Champ requis manquant : totalPoints",
		"Champ requis manquant : questions",
	}, got.Errors)

	rec = do(t, srv, http.MethodPost, "/api/evaluations/validate?lang=en", `{"title": "Quiz"}`,
		map[string]string{"Accept-Language": "fr"})
	decode(t, rec, &got)
	assert.Equal(t, "Required field missing: subject", got.Errors[0])
}

func TestValidateEndpointYAML(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/evaluations/validate", quizYAML,
		map[string]string{"Content-Type": "application/yaml; charset=utf-8"})
	require.Equal(t, http.StatusOK, rec.Code)

	var got validationResponse
	decode(t, rec, &got)
	assert.True(t, got.IsValid, got.Errors)
	assert.Equal(t, float64(45), got.Data["duration"])
	assert.Equal(t, "2025-01-15", got.Data["date"])
}

func TestValidateEndpointTooLarge(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/evaluations/validate", strings.Repeat(" ", 5000)+quizJSON, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestImportEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/evaluations/import", quizJSON,
		map[string]string{ProfessorHeader: "prof-42"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Evaluation model.Evaluation `json:"evaluation"`
		Warnings   []string         `json:"warnings"`
	}
	decode(t, rec, &created)
	ev := created.Evaluation
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "prof-42", ev.ProfessorID)
	assert.Equal(t, model.StatusDraft, ev.Status)
	assert.Equal(t, []string{}, ev.ClassIDs)
	require.Len(t, ev.Questions, 2)
	assert.Equal(t, model.Question{ID: "1", Number: 1, Statement: "2+2?", Points: 4, EstimatedLines: 5}, ev.Questions[0])
	assert.Len(t, created.Warnings, 4)

	rec = do(t, srv, http.MethodGet, "/api/evaluations/"+ev.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Evaluation
	decode(t, rec, &got)
	assert.Equal(t, ev, got)
}

func TestImportEndpointDefaultProfessor(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/evaluations/import", quizJSON, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Evaluation model.Evaluation `json:"evaluation"`
	}
	decode(t, rec, &created)
	assert.Equal(t, "prof-default", created.Evaluation.ProfessorID)
	assert.Equal(t, "2025-01-15", created.Evaluation.Date)
}

func TestImportEndpointInvalid(t *testing.T) {
	srv, s := newTestServer(t)

	doc := strings.Replace(quizJSON, `"totalPoints": 10`, `"totalPoints": 12`, 1)
	rec := do(t, srv, http.MethodPost, "/api/evaluations/import", doc, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var got validationResponse
	decode(t, rec, &got)
	assert.False(t, got.IsValid)
	assert.Equal(t, []string{
		"Inconsistency: totalPoints (12) does not match the sum of question points (10)",
	}, got.Errors)

	count, err := s.EvaluationCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestImportEndpointClasses(t *testing.T) {
	srv, s := newTestServer(t)

	doc := strings.Replace(quizJSON, `"title": "Quiz",`, `"title": "Quiz", "classIds": ["nope"],`, 1)
	rec := do(t, srv, http.MethodPost, "/api/evaluations/import", doc, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	class, err := s.CreateClass(model.Class{Name: "Terminale", Subject: "Math", ProfessorID: "prof-default"})
	require.NoError(t, err)
	doc = strings.Replace(quizJSON, `"title": "Quiz",`, `"title": "Quiz", "classIds": ["`+class.ID+`"],`, 1)
	rec = do(t, srv, http.MethodPost, "/api/evaluations/import", doc, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Evaluation model.Evaluation `json:"evaluation"`
	}
	decode(t, rec, &created)
	assert.Equal(t, []string{class.ID}, created.Evaluation.ClassIDs)
}

func TestEvaluationLifecycleEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/evaluations/import", quizJSON, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Evaluation model.Evaluation `json:"evaluation"`
	}
	decode(t, rec, &created)
	id := created.Evaluation.ID

	rec = do(t, srv, http.MethodGet, "/api/evaluations", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.EvaluationSummary
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].QuestionCount)

	rec = do(t, srv, http.MethodGet, "/api/evaluations", "", map[string]string{ProfessorHeader: "someone-else"})
	decode(t, rec, &list)
	assert.Empty(t, list)

	rec = do(t, srv, http.MethodPatch, "/api/evaluations/"+id+"/status", `{"status": "active"}`, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodPatch, "/api/evaluations/"+id+"/status", `{"status": "archived"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var verr struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	decode(t, rec, &verr)
	assert.Equal(t, map[string]string{"status": "oneof"}, verr.Fields)

	rec = do(t, srv, http.MethodPatch, "/api/evaluations/"+id+"/status", `not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPatch, "/api/evaluations/missing/status", `{"status": "active"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/evaluations/"+id, "", nil)
	var got model.Evaluation
	decode(t, rec, &got)
	assert.Equal(t, model.StatusActive, got.Status)

	rec = do(t, srv, http.MethodDelete, "/api/evaluations/"+id, "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, srv, http.MethodDelete, "/api/evaluations/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, srv, http.MethodGet, "/api/evaluations/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClassEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/classes", `{"name": " Terminale A ", "subject": "Math"}`,
		map[string]string{ProfessorHeader: "prof-7"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var class model.Class
	decode(t, rec, &class)
	assert.NotEmpty(t, class.ID)
	assert.Equal(t, "Terminale A", class.Name)
	assert.Equal(t, "prof-7", class.ProfessorID)

	rec = do(t, srv, http.MethodPost, "/api/classes", `{"subject": "Math"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var verr struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, rec, &verr)
	assert.Equal(t, map[string]string{"name": "required"}, verr.Fields)

	rec = do(t, srv, http.MethodGet, "/api/classes", "", map[string]string{ProfessorHeader: "prof-7"})
	var classes []model.Class
	decode(t, rec, &classes)
	require.Len(t, classes, 1)
	assert.Equal(t, class.ID, classes[0].ID)

	rec = do(t, srv, http.MethodGet, "/api/classes/"+class.ID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/api/classes/"+class.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, srv, http.MethodGet, "/api/classes/"+class.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func importQuiz(t *testing.T, srv http.Handler) model.Evaluation {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api/evaluations/import", quizJSON, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Evaluation model.Evaluation `json:"evaluation"`
	}
	decode(t, rec, &created)
	return created.Evaluation
}

func TestUpdateEvaluationEndpoint(t *testing.T) {
	srv, s := newTestServer(t)
	ev := importQuiz(t, srv)
	class, err := s.CreateClass(model.Class{Name: "Terminale A", Subject: "Math", ProfessorID: "prof-default"})
	require.NoError(t, err)

	body := `{"title": " Final quiz ", "date": "2025-02-01", "duration": 90, "status": "active", "classIds": ["` + class.ID + `"]}`
	rec := do(t, srv, http.MethodPatch, "/api/evaluations/"+ev.ID, body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got model.Evaluation
	decode(t, rec, &got)
	assert.Equal(t, "Final quiz", got.Title)
	assert.Equal(t, "Math", got.Subject)
	assert.Equal(t, "2025-02-01", got.Date)
	assert.Equal(t, 90.0, got.Duration)
	assert.Equal(t, model.StatusActive, got.Status)
	assert.Equal(t, []string{class.ID}, got.ClassIDs)
	assert.Equal(t, 10.0, got.TotalPoints)
	assert.Len(t, got.Questions, 2)

	tests := []struct {
		name   string
		body   string
		fields map[string]string
	}{
		{"empty title", `{"title": ""}`, map[string]string{"title": "min"}},
		{"bad date", `{"date": "01/02/2025"}`, map[string]string{"date": "datetime"}},
		{"zero duration", `{"duration": 0}`, map[string]string{"duration": "gt"}},
		{"unknown status", `{"status": "archived"}`, map[string]string{"status": "oneof"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPatch, "/api/evaluations/"+ev.ID, tt.body, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			var verr struct {
				Fields map[string]string `json:"fields"`
			}
			decode(t, rec, &verr)
			assert.Equal(t, tt.fields, verr.Fields)
		})
	}

	rec = do(t, srv, http.MethodPatch, "/api/evaluations/"+ev.ID, `{"subject": "   "}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPatch, "/api/evaluations/"+ev.ID, `{"classIds": ["nope"]}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPatch, "/api/evaluations/missing", `{"title": "X"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuestionEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	ev := importQuiz(t, srv)

	rec := do(t, srv, http.MethodGet, "/api/evaluations/"+ev.ID+"/questions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var questions []model.Question
	decode(t, rec, &questions)
	require.Len(t, questions, 2)
	assert.Equal(t, "q2", questions[1].ID)

	rec = do(t, srv, http.MethodPost, "/api/evaluations/"+ev.ID+"/questions",
		`{"statement": "10/2?", "modelAnswer": "5", "points": 5}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var q model.Question
	decode(t, rec, &q)
	assert.NotEmpty(t, q.ID)
	assert.Equal(t, 3, q.Number)
	assert.Equal(t, 5.0, q.EstimatedLines)

	rec = do(t, srv, http.MethodGet, "/api/evaluations/"+ev.ID, "", nil)
	var got model.Evaluation
	decode(t, rec, &got)
	require.Len(t, got.Questions, 3)
	var sum float64
	for _, q := range got.Questions {
		sum += q.Points
	}
	assert.Equal(t, 15.0, got.TotalPoints)
	assert.Equal(t, got.TotalPoints, sum)

	rec = do(t, srv, http.MethodPost, "/api/evaluations/"+ev.ID+"/questions", `{"statement": "S", "points": 0}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var verr struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, rec, &verr)
	assert.Equal(t, map[string]string{"points": "gt"}, verr.Fields)

	rec = do(t, srv, http.MethodPost, "/api/evaluations/missing/questions", `{"statement": "S", "points": 1}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, srv, http.MethodGet, "/api/evaluations/missing/questions", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateClassEndpoint(t *testing.T) {
	srv, s := newTestServer(t)
	class, err := s.CreateClass(model.Class{Name: "Terminale A", Subject: "Math", ProfessorID: "prof-default"})
	require.NoError(t, err)

	rec := do(t, srv, http.MethodPatch, "/api/classes/"+class.ID, `{"name": " Terminale B "}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got model.Class
	decode(t, rec, &got)
	assert.Equal(t, "Terminale B", got.Name)
	assert.Equal(t, "Math", got.Subject)

	rec = do(t, srv, http.MethodPatch, "/api/classes/"+class.ID, `{"subject": ""}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, srv, http.MethodPatch, "/api/classes/"+class.ID, `{"name": "  "}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPatch, "/api/classes/missing", `{"name": "X"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func formBody(values map[string]string) (string, map[string]string) {
	form := url.Values{}
	for k, v := range values {
		form.Set(k, v)
	}
	return form.Encode(), map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
}

func TestImportPages(t *testing.T) {
	srv, s := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/import", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="document"`)

	body, header := formBody(map[string]string{"document": quizJSON, "format": "json"})
	rec = do(t, srv, http.MethodPost, "/import/preview", body, header)
	require.Equal(t, http.StatusOK, rec.Code)
	page := rec.Body.String()
	assert.Contains(t, page, "The document is valid.")
	assert.Contains(t, page, "Confirm import")
	assert.Contains(t, page, "No id provided, one will be generated automatically")
	assert.Contains(t, page, "2+2?")
	count, err := s.EvaluationCount()
	require.NoError(t, err)
	assert.Zero(t, count, "preview must not persist")

	rec = do(t, srv, http.MethodPost, "/import/confirm", body, header)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	location := rec.Header().Get("Location")
	assert.True(t, strings.HasPrefix(location, "/?imported="), location)

	rec = do(t, srv, http.MethodGet, location, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `Evaluation &#34;Quiz&#34; imported.`)
	assert.Contains(t, rec.Body.String(), "1 evaluation")
}

func TestImportPreviewInvalid(t *testing.T) {
	srv, s := newTestServer(t)

	body, header := formBody(map[string]string{"document": `{"title": "<b>x</b>"}`})
	rec := do(t, srv, http.MethodPost, "/import/preview", body, header)
	require.Equal(t, http.StatusOK, rec.Code)
	page := rec.Body.String()
	assert.Contains(t, page, "Required field missing: subject")
	assert.NotContains(t, page, "Confirm import")
	assert.NotContains(t, page, "<b>x</b>")

	rec = do(t, srv, http.MethodPost, "/import/confirm", body, header)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	count, err := s.EvaluationCount()
	require.NoError(t, err)
	assert.Zero(t, count)

	body, header = formBody(map[string]string{"document": "   "})
	rec = do(t, srv, http.MethodPost, "/import/preview", body, header)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "The document is empty.")
}

func TestImportPreviewUpload(t *testing.T) {
	srv, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("format", "json"))
	fw, err := mw.CreateFormFile("file", "quiz.yaml")
	require.NoError(t, err)
	_, err = fw.Write([]byte(quizYAML))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/import/preview?lang=fr", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	page := rec.Body.String()
	assert.Contains(t, page, "Le document est valide.")
	assert.Contains(t, page, `name="format" value="yaml"`)
	assert.Contains(t, page, "Aucune classe assignée, vous pourrez en ajouter plus tard")
}

func TestDeleteEvaluationForm(t *testing.T) {
	srv, s := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/evaluations/import", quizJSON, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Evaluation model.Evaluation `json:"evaluation"`
	}
	decode(t, rec, &created)

	rec = do(t, srv, http.MethodPost, "/evaluations/"+created.Evaluation.ID+"/delete", "", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	count, err := s.EvaluationCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}
