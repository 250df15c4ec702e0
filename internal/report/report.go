// Package report formats validation results and stored records for the terminal.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/pavelanni/evalforge/internal/evalimport"
	"github.com/pavelanni/evalforge/internal/model"
)

// maxCellWidth caps free-text columns such as titles.
const maxCellWidth = 40

// Validation writes the outcome of validating one document.
func Validation(w io.Writer, name string, res evalimport.Result) error {
	status := "OK"
	if !res.Valid {
		status = "INVALID"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s (%d errors, %d warnings)\n", name, status, len(res.Errors), len(res.Warnings))
	for _, msg := range res.ErrorMessages() {
		fmt.Fprintf(&sb, "  error:   %s\n", msg)
	}
	for _, msg := range res.WarningMessages() {
		fmt.Fprintf(&sb, "  warning: %s\n", msg)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// Evaluations writes evaluation summaries as an aligned table.
func Evaluations(w io.Writer, list []model.EvaluationSummary) error {
	rows := [][]string{{"ID", "TITLE", "SUBJECT", "DATE", "POINTS", "QUESTIONS", "STATUS"}}
	for _, e := range list {
		rows = append(rows, []string{
			e.ID,
			truncate(e.Title),
			truncate(e.Subject),
			e.Date,
			strconv.FormatFloat(e.TotalPoints, 'f', -1, 64),
			strconv.Itoa(e.QuestionCount),
			string(e.Status),
		})
	}
	return table(w, rows)
}

// Classes writes classes as an aligned table.
func Classes(w io.Writer, classes []model.Class) error {
	rows := [][]string{{"ID", "NAME", "SUBJECT", "PROFESSOR"}}
	for _, c := range classes {
		rows = append(rows, []string{c.ID, truncate(c.Name), truncate(c.Subject), c.ProfessorID})
	}
	return table(w, rows)
}

func truncate(s string) string {
	return runewidth.Truncate(s, maxCellWidth, "…")
}

// table pads each column to its widest cell, measured in display width.
func table(w io.Writer, rows [][]string) error {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	var sb strings.Builder
	for _, row := range rows {
		for i, cell := range row {
			if i == len(row)-1 {
				sb.WriteString(cell)
				break
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
			sb.WriteString("  ")
		}
		sb.WriteString("\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
