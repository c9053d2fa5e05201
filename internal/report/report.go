// Package report summarizes task activity over a trailing period, for
// admin dashboards.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/kvn/taskhub/internal/model"
	"github.com/kvn/taskhub/internal/store"
)

// Period selects the trailing window a report covers.
type Period string

const (
	PeriodDaily      Period = "daily"
	PeriodWeekly     Period = "weekly"
	PeriodMonthly    Period = "monthly"
	PeriodHalfYearly Period = "half-yearly"
	PeriodYearly     Period = "yearly"
)

// Start returns the beginning of the period ending at ref.
func (p Period) Start(ref time.Time) (time.Time, error) {
	switch p {
	case PeriodDaily:
		return ref.AddDate(0, 0, -1), nil
	case PeriodWeekly:
		return ref.AddDate(0, 0, -7), nil
	case PeriodMonthly:
		return ref.AddDate(0, -1, 0), nil
	case PeriodHalfYearly:
		return ref.AddDate(0, -6, 0), nil
	case PeriodYearly:
		return ref.AddDate(-1, 0, 0), nil
	}
	return time.Time{}, fmt.Errorf("unknown report period %q", p)
}

// Report is a summary of the tasks created within a period.
type Report struct {
	Period    Period       `json:"period"`
	StartDate time.Time    `json:"start_date"`
	EndDate   time.Time    `json:"end_date"`
	Tasks     []model.Task `json:"tasks"`

	TotalTasks      int `json:"total_tasks"`
	CompletedTasks  int `json:"completed_tasks"`
	VerifiedTasks   int `json:"verified_tasks"`
	PendingTasks    int `json:"pending_tasks"`
	InProgressTasks int `json:"in_progress_tasks"`
}

// TaskLister lists tasks matching a filter.
type TaskLister interface {
	GetTasks(ctx context.Context, filter store.TaskFilter) ([]model.Task, error)
}

// Build computes the report for the period ending at ref, counting
// tasks by their creation date.
func Build(ctx context.Context, lister TaskLister, period Period, ref time.Time) (*Report, error) {
	start, err := period.Start(ref)
	if err != nil {
		return nil, err
	}

	tasks, err := lister.GetTasks(ctx, store.TaskFilter{
		CreatedFrom: &start,
		CreatedTo:   &ref,
	})
	if err != nil {
		return nil, fmt.Errorf("listing tasks for %s report: %w", period, err)
	}

	r := &Report{
		Period:     period,
		StartDate:  start,
		EndDate:    ref,
		Tasks:      tasks,
		TotalTasks: len(tasks),
	}
	for _, t := range tasks {
		switch t.Status {
		case model.TaskPending:
			r.PendingTasks++
		case model.TaskInProgress:
			r.InProgressTasks++
		case model.TaskCompleted:
			r.CompletedTasks++
		case model.TaskVerified:
			r.VerifiedTasks++
		}
	}
	return r, nil
}
