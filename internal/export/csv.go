// Package export writes project reports as CSV or JSON.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"project-tracker/internal/model"
	"project-tracker/internal/service"
)

var csvHeader = []string{
	"ID", "Name", "Category", "Status", "Priority",
	"Start Date", "End Date", "Estimated Completion",
	"Budget", "Current Spend", "Tasks", "Completed Tasks", "Progress (%)", "Overdue",
}

func WriteCSV(w io.Writer, report service.Report) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range report.Projects {
		budget := ""
		if p.Budget != nil {
			budget = p.Budget.String()
		}
		row := []string{
			strconv.FormatUint(uint64(p.ID), 10),
			p.Name,
			p.Category,
			p.Status.Label(),
			p.Priority.Label(),
			formatDate(p.StartDate),
			formatDate(p.EndDate),
			formatDate(p.EstimatedCompletionDate),
			budget,
			p.CurrentSpend.String(),
			strconv.FormatInt(p.TotalTasks, 10),
			strconv.FormatInt(p.CompletedTasks, 10),
			strconv.FormatFloat(p.Progress, 'f', 1, 64),
			yesNo(p.Overdue),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", p.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatDate(d *model.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
