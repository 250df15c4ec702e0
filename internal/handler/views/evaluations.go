package views

import (
	"context"
	"io"
	"net/url"

	"github.com/a-h/templ"

	"github.com/pavelanni/evalforge/internal/i18n"
	"github.com/pavelanni/evalforge/internal/model"
)

// EvaluationsPage lists the professor's evaluations. flash, when set, is shown
// above the table.
func EvaluationsPage(list []model.EvaluationSummary, flash string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<h1>`)
		h.text(i18n.T(ctx, "EvaluationsHeading"))
		h.raw(`</h1>`)
		if flash != "" {
			h.raw(`<p class="flash">`)
			h.text(flash)
			h.raw(`</p>`)
		}
		if len(list) == 0 {
			h.raw(`<p>`)
			h.text(i18n.T(ctx, "EvaluationsEmpty"))
			h.raw(`</p>`)
			return h.err
		}
		h.raw(`<p>`)
		h.text(i18n.Tp(ctx, "EvaluationCount", len(list)))
		h.raw(`</p><table><thead><tr>`)
		for _, col := range []string{"ColTitle", "ColSubject", "ColDate", "ColPoints", "ColQuestions", "ColStatus"} {
			h.raw(`<th>`)
			h.text(i18n.T(ctx, col))
			h.raw(`</th>`)
		}
		h.raw(`<th></th></tr></thead><tbody>`)
		for _, e := range list {
			h.raw(`<tr><td>`)
			h.text(e.Title)
			h.raw(`</td><td>`)
			h.text(e.Subject)
			h.raw(`</td><td>`)
			h.text(e.Date)
			h.raw(`</td><td>`)
			h.text(formatNumber(e.TotalPoints))
			h.raw(`</td><td>`)
			h.text(formatNumber(float64(e.QuestionCount)))
			h.raw(`</td><td>`)
			h.text(statusLabel(ctx, e.Status))
			h.raw(`</td><td><form method="post" action="`)
			h.text(string(templ.URL("/evaluations/" + url.PathEscape(e.ID) + "/delete")))
			h.raw(`"><button type="submit">`)
			h.text(i18n.T(ctx, "DeleteButton"))
			h.raw(`</button></form></td></tr>`)
		}
		h.raw(`</tbody></table>`)
		return h.err
	})
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return layout(i18n.T(ctx, "EvaluationsHeading"), body).Render(ctx, w)
	})
}
