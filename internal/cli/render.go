package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/noah-isme/sma-observations/internal/localpager"
	"github.com/noah-isme/sma-observations/internal/models"
	"github.com/noah-isme/sma-observations/pkg/pagination"
)

const (
	observationColWidth = 48
	dateLayout          = "2006-01-02 15:04"
)

var (
	bold  = color.New(color.Bold)
	faint = color.New(color.Faint)
	star  = color.New(color.FgYellow)
)

func observationTable(items []models.Observation) *uitable.Table {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = observationColWidth
	tbl.Wrap = true
	tbl.AddRow(bold.Sprint("ID"), bold.Sprint(" "), bold.Sprint("Student"), bold.Sprint("Observation"), bold.Sprint("Status"), bold.Sprint("Created"))
	for _, o := range items {
		fav := " "
		if o.IsFavorite {
			fav = star.Sprint("★")
		}
		status := "active"
		if o.IsCompleted {
			status = "completed"
			if o.CompletedAt != nil {
				status += " " + o.CompletedAt.Local().Format(dateLayout)
			}
		}
		tbl.AddRow(o.ID, fav, o.StudentName, o.Observation, status, o.CreatedAt.Local().Format(dateLayout))
	}
	return tbl
}

func footer(p pagination.Descriptor) string {
	if p.TotalItems == 0 {
		return "No observations."
	}
	nav := ""
	if p.HasPreviousPage {
		nav += " [p]rev"
	}
	if p.HasNextPage {
		nav += " [n]ext"
	}
	return fmt.Sprintf("Page %d of %d, %d observations.%s", p.CurrentPage, p.TotalPages, p.TotalItems, nav)
}

func renderPage(out io.Writer, state models.ObservationsState) {
	if state.Error != "" {
		_, _ = faint.Fprintf(out, "last error: %s\n", state.Error)
	}
	if len(state.Items) > 0 {
		_, _ = fmt.Fprintln(out, observationTable(state.Items))
	}
	_, _ = faint.Fprintln(out, footer(state.Pagination))
}

func renderTab(out io.Writer, tab localpager.Tab, view localpager.View[models.Observation]) {
	_, _ = bold.Fprintf(out, "%s (%d)\n", tab, len(view.All))
	if len(view.Page) > 0 {
		_, _ = fmt.Fprintln(out, observationTable(view.Page))
	}
	_, _ = faint.Fprintln(out, footer(view.Pagination))
	_, _ = fmt.Fprintln(out)
}
