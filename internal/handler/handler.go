package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/evalforge/internal/evalimport"
	"github.com/pavelanni/evalforge/internal/i18n"
	"github.com/pavelanni/evalforge/internal/model"
	"github.com/pavelanni/evalforge/internal/store"
)

// ProfessorHeader carries the acting professor's ID, set by the upstream gateway.
const ProfessorHeader = "X-Professor-ID"

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	config   model.ServerConfig
	validate *validator.Validate
	opts     []evalimport.Option
}

// New creates a new Handler. opts are applied to every normalizer the handler
// builds, before the acting professor is set.
func New(s *store.Store, cfg model.ServerConfig, opts ...evalimport.Option) (*Handler, error) {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 1 << 20
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{store: s, config: cfg, validate: v, opts: opts}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.professorMiddleware)

		r.Get("/", h.handleIndex)
		r.Get("/import", h.handleImportPage)
		r.Post("/import/preview", h.handleImportPreview)
		r.Post("/import/edit", h.handleImportEdit)
		r.Post("/import/confirm", h.handleImportConfirm)
		r.Post("/evaluations/{id}/delete", h.handleDeleteEvaluationForm)

		r.Route("/api", func(r chi.Router) {
			r.Post("/evaluations/validate", h.handleValidate)
			r.Post("/evaluations/import", h.handleImport)
			r.Get("/evaluations", h.handleListEvaluations)
			r.Get("/evaluations/{id}", h.handleGetEvaluation)
			r.Patch("/evaluations/{id}", h.handleUpdateEvaluation)
			r.Patch("/evaluations/{id}/status", h.handleUpdateStatus)
			r.Get("/evaluations/{id}/questions", h.handleListQuestions)
			r.Post("/evaluations/{id}/questions", h.handleAddQuestion)
			r.Delete("/evaluations/{id}", h.handleDeleteEvaluation)
			r.Get("/classes", h.handleListClasses)
			r.Post("/classes", h.handleCreateClass)
			r.Get("/classes/{id}", h.handleGetClass)
			r.Patch("/classes/{id}", h.handleUpdateClass)
			r.Delete("/classes/{id}", h.handleDeleteClass)
		})
	})
}

// professorMiddleware resolves the acting professor from the gateway header,
// falling back to the configured default.
func (h *Handler) professorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(ProfessorHeader))
		if id == "" {
			id = h.config.DefaultProfessorID
		}
		next.ServeHTTP(w, r.WithContext(model.ContextWithProfessor(r.Context(), id)))
	})
}

func (h *Handler) normalizer(r *http.Request) *evalimport.Normalizer {
	opts := append([]evalimport.Option{}, h.opts...)
	opts = append(opts, evalimport.WithProfessor(model.ProfessorFromContext(r.Context())))
	return evalimport.NewNormalizer(opts...)
}

// validationResponse is the localized wire form of an evalimport.Result.
type validationResponse struct {
	IsValid  bool                `json:"isValid"`
	Errors   []string            `json:"errors"`
	Warnings []string            `json:"warnings"`
	Data     evalimport.Document `json:"data"`
}

func (h *Handler) localizeResult(r *http.Request, res evalimport.Result) validationResponse {
	data := res.Data
	if data == nil {
		data = evalimport.Document{}
	}
	return validationResponse{
		IsValid:  res.Valid,
		Errors:   localizeIssues(r, res.Errors),
		Warnings: localizeIssues(r, res.Warnings),
		Data:     data,
	}
}

func localizeIssues(r *http.Request, issues []evalimport.Issue) []string {
	out := make([]string, 0, len(issues))
	for _, iss := range issues {
		out = append(out, i18n.Tm(r.Context(), iss.Message, iss.Data))
	}
	return out
}

// readDocument reads the request body, bounded by the configured upload limit,
// and validates it as YAML or JSON depending on the content type.
func (h *Handler) readDocument(w http.ResponseWriter, r *http.Request) (evalimport.Result, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "document too large")
			return evalimport.Result{}, false
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return evalimport.Result{}, false
	}
	if isYAML(r.Header.Get("Content-Type")) {
		return evalimport.ValidateYAML(string(body)), true
	}
	return evalimport.Validate(string(body)), true
}

func isYAML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mt {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return true
	}
	return false
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	res, ok := h.readDocument(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.localizeResult(r, res))
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	res, ok := h.readDocument(w, r)
	if !ok {
		return
	}
	if !res.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, h.localizeResult(r, res))
		return
	}

	ev, err := h.normalizer(r).Normalize(res)
	if err != nil {
		slog.Error("failed to normalize evaluation", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	saved, err := h.store.SaveEvaluation(ev)
	if err != nil {
		if errors.Is(err, store.ErrUnknownClass) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("failed to save evaluation", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("imported evaluation", "id", saved.ID, "title", saved.Title, "professor_id", saved.ProfessorID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"evaluation": saved,
		"warnings":   localizeIssues(r, res.Warnings),
	})
}

func (h *Handler) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListEvaluations(model.ProfessorFromContext(r.Context()))
	if err != nil {
		slog.Error("failed to list evaluations", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	ev, err := h.store.GetEvaluation(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft active correcting completed"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.store.UpdateEvaluationStatus(id, model.EvaluationStatus(req.Status)); err != nil {
		writeStoreError(w, err)
		return
	}
	slog.Info("updated evaluation status", "id", id, "status", req.Status)
	w.WriteHeader(http.StatusNoContent)
}

// updateEvaluationRequest is a partial evaluation update; absent fields are
// left unchanged. Total points follow the questions and cannot be set here.
type updateEvaluationRequest struct {
	Title    *string   `json:"title" validate:"omitnil,min=1,max=200"`
	Subject  *string   `json:"subject" validate:"omitnil,min=1,max=200"`
	Date     *string   `json:"date" validate:"omitnil,datetime=2006-01-02"`
	Duration *float64  `json:"duration" validate:"omitnil,gt=0"`
	Status   *string   `json:"status" validate:"omitnil,oneof=draft active correcting completed"`
	ClassIDs *[]string `json:"classIds" validate:"omitnil,dive,required"`
}

func (h *Handler) handleUpdateEvaluation(w http.ResponseWriter, r *http.Request) {
	var req updateEvaluationRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	u := model.EvaluationUpdate{
		Title:    trimmed(req.Title),
		Subject:  trimmed(req.Subject),
		Date:     req.Date,
		Duration: req.Duration,
		ClassIDs: req.ClassIDs,
	}
	if blank(u.Title) || blank(u.Subject) {
		writeError(w, http.StatusBadRequest, "title and subject must not be blank")
		return
	}
	if req.Status != nil {
		st := model.EvaluationStatus(*req.Status)
		u.Status = &st
	}
	ev, err := h.store.UpdateEvaluation(chi.URLParam(r, "id"), u)
	if err != nil {
		if errors.Is(err, store.ErrUnknownClass) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.store.ListQuestions(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

type questionRequest struct {
	ID             string  `json:"id" validate:"max=100"`
	Number         int     `json:"number" validate:"gte=0"`
	Statement      string  `json:"statement" validate:"required,max=5000"`
	ModelAnswer    string  `json:"modelAnswer" validate:"max=5000"`
	Points         float64 `json:"points" validate:"gt=0"`
	EstimatedLines float64 `json:"estimatedLines" validate:"gte=0"`
}

func (h *Handler) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	q, err := h.store.AddQuestion(chi.URLParam(r, "id"), model.Question{
		ID:             strings.TrimSpace(req.ID),
		Number:         req.Number,
		Statement:      strings.TrimSpace(req.Statement),
		ModelAnswer:    req.ModelAnswer,
		Points:         req.Points,
		EstimatedLines: req.EstimatedLines,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (h *Handler) handleDeleteEvaluation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteEvaluation(id); err != nil {
		writeStoreError(w, err)
		return
	}
	slog.Info("deleted evaluation", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := h.store.ListClasses(model.ProfessorFromContext(r.Context()))
	if err != nil {
		slog.Error("failed to list classes", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, classes)
}

type classRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Subject string `json:"subject" validate:"required,max=200"`
}

func (h *Handler) handleCreateClass(w http.ResponseWriter, r *http.Request) {
	var req classRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	c, err := h.store.CreateClass(model.Class{
		Name:        strings.TrimSpace(req.Name),
		Subject:     strings.TrimSpace(req.Subject),
		ProfessorID: model.ProfessorFromContext(r.Context()),
	})
	if err != nil {
		slog.Error("failed to create class", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleGetClass(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.GetClass(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type updateClassRequest struct {
	Name    *string `json:"name" validate:"omitnil,min=1,max=200"`
	Subject *string `json:"subject" validate:"omitnil,min=1,max=200"`
}

func (h *Handler) handleUpdateClass(w http.ResponseWriter, r *http.Request) {
	var req updateClassRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	u := model.ClassUpdate{Name: trimmed(req.Name), Subject: trimmed(req.Subject)}
	if blank(u.Name) || blank(u.Subject) {
		writeError(w, http.StatusBadRequest, "name and subject must not be blank")
		return
	}
	c, err := h.store.UpdateClass(chi.URLParam(r, "id"), u)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleDeleteClass(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteClass(id); err != nil {
		writeStoreError(w, err)
		return
	}
	slog.Info("deleted class", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// decodeJSON decodes and validates a request payload, writing a 400 response on
// failure.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request", "fields": fields})
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func blank(s *string) bool {
	return s != nil && *s == ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	slog.Error("store error", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
