// Package views renders the HTML pages of the import workflow.
package views

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/pavelanni/evalforge/internal/i18n"
	"github.com/pavelanni/evalforge/internal/model"
)

// html writes escaped and raw fragments, keeping the first write error.
type html struct {
	w   io.Writer
	err error
}

func (h *html) raw(parts ...string) {
	for _, s := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *html) component(ctx context.Context, c templ.Component) {
	if h.err != nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>`)
		h.text(title + " | " + i18n.T(ctx, "AppTitle"))
		h.raw(`</title><style>`, styles, `</style></head><body><nav>`)
		h.raw(`<strong>`)
		h.text(i18n.T(ctx, "AppTitle"))
		h.raw(`</strong> <a href="/">`)
		h.text(i18n.T(ctx, "NavEvaluations"))
		h.raw(`</a> <a href="/import">`)
		h.text(i18n.T(ctx, "NavImport"))
		h.raw(`</a></nav><main>`)
		h.component(ctx, body)
		h.raw(`</main></body></html>`)
		return h.err
	})
}

const styles = `body{font-family:sans-serif;max-width:60rem;margin:0 auto;padding:1rem}
nav a{margin-left:1rem}
table{border-collapse:collapse;width:100%}
td,th{border-bottom:1px solid #ddd;padding:.4rem;text-align:left}
textarea{width:100%;min-height:20rem;font-family:monospace}
.errors{color:#a40000}.warnings{color:#8a5a00}.flash{background:#e8f5e9;padding:.5rem}`

func statusLabel(ctx context.Context, s model.EvaluationStatus) string {
	switch s {
	case model.StatusDraft:
		return i18n.T(ctx, "StatusDraft")
	case model.StatusActive:
		return i18n.T(ctx, "StatusActive")
	case model.StatusCorrecting:
		return i18n.T(ctx, "StatusCorrecting")
	case model.StatusCompleted:
		return i18n.T(ctx, "StatusCompleted")
	}
	return string(s)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
