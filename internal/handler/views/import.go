package views

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/pavelanni/evalforge/internal/i18n"
	"github.com/pavelanni/evalforge/internal/model"
)

// ImportPreview is the outcome of validating a pasted or uploaded document.
type ImportPreview struct {
	Document string
	Format   string
	Valid    bool
	Errors   []string
	Warnings []string
	Draft    *model.Evaluation // normalized draft, set only when Valid
}

// ImportPage shows the paste/upload form, prefilled with document.
func ImportPage(document, format, message string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<h1>`)
		h.text(i18n.T(ctx, "ImportHeading"))
		h.raw(`</h1>`)
		if message != "" {
			h.raw(`<p class="errors">`)
			h.text(message)
			h.raw(`</p>`)
		}
		h.raw(`<p>`)
		h.text(i18n.T(ctx, "ImportHelp"))
		h.raw(`</p><form method="post" action="/import/preview" enctype="multipart/form-data">`)
		h.raw(`<p><label>`)
		h.text(i18n.T(ctx, "ImportFormatLabel"))
		h.raw(` <select name="format">`)
		for _, f := range []string{"json", "yaml"} {
			h.raw(`<option value="`, f, `"`)
			if f == format {
				h.raw(` selected`)
			}
			h.raw(`>`, f, `</option>`)
		}
		h.raw(`</select></label></p><p><label>`)
		h.text(i18n.T(ctx, "ImportDocumentLabel"))
		h.raw(`<textarea name="document">`)
		h.text(document)
		h.raw(`</textarea></label></p><p><label>`)
		h.text(i18n.T(ctx, "ImportFileLabel"))
		h.raw(` <input type="file" name="file" accept=".json,.yaml,.yml"></label></p>`)
		h.raw(`<button type="submit">`)
		h.text(i18n.T(ctx, "ImportPreviewButton"))
		h.raw(`</button></form>`)
		return h.err
	})
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return layout(i18n.T(ctx, "ImportHeading"), body).Render(ctx, w)
	})
}

// PreviewPage shows validation errors and warnings, the normalized draft, and a
// confirm button when the document can be imported.
func PreviewPage(p ImportPreview) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<h1>`)
		h.text(i18n.T(ctx, "PreviewHeading"))
		h.raw(`</h1><p>`)
		if p.Valid {
			h.text(i18n.T(ctx, "PreviewValid"))
		} else {
			h.text(i18n.T(ctx, "PreviewInvalid"))
		}
		h.raw(`</p>`)
		issueList(ctx, h, "errors", "ErrorsHeading", p.Errors)
		issueList(ctx, h, "warnings", "WarningsHeading", p.Warnings)
		if p.Draft != nil {
			h.component(ctx, draftSummary(*p.Draft))
		}

		h.raw(`<form method="post" action="/import/confirm">`)
		h.raw(`<input type="hidden" name="format" value="`)
		h.text(p.Format)
		h.raw(`"><input type="hidden" name="document" value="`)
		h.text(p.Document)
		h.raw(`">`)
		if p.Valid {
			h.raw(`<button type="submit">`)
			h.text(i18n.T(ctx, "ConfirmButton"))
			h.raw(`</button> `)
		}
		h.raw(`<button type="submit" formaction="/import/edit">`)
		h.text(i18n.T(ctx, "EditButton"))
		h.raw(`</button></form>`)
		return h.err
	})
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return layout(i18n.T(ctx, "PreviewHeading"), body).Render(ctx, w)
	})
}

func issueList(ctx context.Context, h *html, class, headingID string, issues []string) {
	if len(issues) == 0 {
		return
	}
	h.raw(`<section class="`, class, `"><h2>`)
	h.text(i18n.T(ctx, headingID))
	h.raw(`</h2><ul>`)
	for _, s := range issues {
		h.raw(`<li>`)
		h.text(s)
		h.raw(`</li>`)
	}
	h.raw(`</ul></section>`)
}

func draftSummary(ev model.Evaluation) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<section><h2>`)
		h.text(ev.Title)
		h.raw(`</h2><p>`)
		h.text(ev.Subject + " · " + ev.Date + " · ")
		h.text(i18n.Td(ctx, "DurationMinutes", map[string]any{"Minutes": formatNumber(ev.Duration)}))
		h.text(" · ")
		h.text(i18n.Td(ctx, "PointsValue", map[string]any{"Points": formatNumber(ev.TotalPoints)}))
		h.text(" · " + statusLabel(ctx, ev.Status))
		h.raw(`</p><ol>`)
		for _, q := range ev.Questions {
			h.raw(`<li><strong>`)
			h.text(i18n.Td(ctx, "QuestionN", map[string]any{"Number": q.Number}))
			h.raw(`</strong> (`)
			h.text(i18n.Td(ctx, "PointsValue", map[string]any{"Points": formatNumber(q.Points)}))
			h.raw(`): `)
			h.text(q.Statement)
			h.raw(`</li>`)
		}
		h.raw(`</ol></section>`)
		return h.err
	})
}
