package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/evalforge/internal/evalimport"
	"github.com/pavelanni/evalforge/internal/handler/views"
	"github.com/pavelanni/evalforge/internal/i18n"
	"github.com/pavelanni/evalforge/internal/model"
	"github.com/pavelanni/evalforge/internal/store"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListEvaluations(model.ProfessorFromContext(r.Context()))
	if err != nil {
		slog.Error("failed to list evaluations", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var flash string
	if id := r.URL.Query().Get("imported"); id != "" {
		if ev, err := h.store.GetEvaluation(id); err == nil {
			flash = i18n.Td(r.Context(), "ImportSaved", map[string]any{"Title": ev.Title})
		}
	}
	render(w, r, http.StatusOK, views.EvaluationsPage(list, flash))
}

func (h *Handler) handleDeleteEvaluationForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteEvaluation(id); err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Error("failed to delete evaluation", "id", id, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleImportPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, views.ImportPage("", formatJSON, ""))
}

func (h *Handler) handleImportEdit(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, views.ImportPage(r.FormValue("document"), formatOf(r.FormValue("format"), ""), ""))
}

// formatOf picks the document format from the form field or the uploaded file name.
func formatOf(field, filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return formatYAML
	case ".json":
		return formatJSON
	}
	if field == formatYAML {
		return formatYAML
	}
	return formatJSON
}

func validateDocument(document, format string) evalimport.Result {
	if format == formatYAML {
		return evalimport.ValidateYAML(document)
	}
	return evalimport.Validate(document)
}

// readImportForm returns the submitted document and its format. An uploaded
// file takes precedence over the textarea.
func (h *Handler) readImportForm(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		err = r.ParseMultipartForm(h.config.MaxUploadBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "document too large", http.StatusRequestEntityTooLarge)
			return "", "", false
		}
		http.Error(w, "invalid form", http.StatusBadRequest)
		return "", "", false
	}

	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, "failed to read file", http.StatusInternalServerError)
			return "", "", false
		}
		if len(data) > 0 {
			slog.Debug("received import upload", "filename", header.Filename, "bytes", len(data))
			return string(data), formatOf(r.FormValue("format"), header.Filename), true
		}
	}
	return r.FormValue("document"), formatOf(r.FormValue("format"), ""), true
}

func (h *Handler) preview(r *http.Request, document, format string, res evalimport.Result) views.ImportPreview {
	p := views.ImportPreview{
		Document: document,
		Format:   format,
		Valid:    res.Valid,
		Errors:   localizeIssues(r, res.Errors),
		Warnings: localizeIssues(r, res.Warnings),
	}
	if res.Valid {
		ev, err := h.normalizer(r).Normalize(res)
		if err != nil {
			slog.Error("failed to normalize preview", "error", err)
		} else {
			p.Draft = &ev
		}
	}
	return p
}

func (h *Handler) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	document, format, ok := h.readImportForm(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(document) == "" {
		render(w, r, http.StatusBadRequest, views.ImportPage("", format, i18n.T(r.Context(), "ImportEmptyDocument")))
		return
	}

	res := validateDocument(document, format)
	render(w, r, http.StatusOK, views.PreviewPage(h.preview(r, document, format, res)))
}

// handleImportConfirm revalidates the document the professor confirmed; the
// preview round trip is untrusted like any other input.
func (h *Handler) handleImportConfirm(w http.ResponseWriter, r *http.Request) {
	document, format, ok := h.readImportForm(w, r)
	if !ok {
		return
	}

	res := validateDocument(document, format)
	if !res.Valid {
		render(w, r, http.StatusUnprocessableEntity, views.PreviewPage(h.preview(r, document, format, res)))
		return
	}

	ev, err := h.normalizer(r).Normalize(res)
	if err != nil {
		slog.Error("failed to normalize evaluation", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	saved, err := h.store.SaveEvaluation(ev)
	if errors.Is(err, store.ErrUnknownClass) {
		p := h.preview(r, document, format, res)
		p.Valid = false
		p.Draft = nil
		p.Errors = append(p.Errors, i18n.T(r.Context(), "ImportUnknownClass"))
		render(w, r, http.StatusBadRequest, views.PreviewPage(p))
		return
	}
	if err != nil {
		slog.Error("failed to save evaluation", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	slog.Info("imported evaluation", "id", saved.ID, "title", saved.Title, "professor_id", saved.ProfessorID)
	http.Redirect(w, r, "/?imported="+url.QueryEscape(saved.ID), http.StatusSeeOther)
}
