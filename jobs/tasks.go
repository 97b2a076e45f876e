package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueReports holds report generation tasks.
	QueueReports = "reports"
	// TaskSellThruWeekly generates and archives one weekly sell-through workbook.
	TaskSellThruWeekly = "sellthru:weekly"
)

// WeeklyReportPayload describes one report run. When PreviousWeek is set the
// handler resolves the ISO week preceding the moment it runs and ignores
// Year and Week.
type WeeklyReportPayload struct {
	Year         int    `json:"year,omitempty"`
	Week         int    `json:"week,omitempty"`
	VendorID     string `json:"vendor"`
	PreviousWeek bool   `json:"previous_week,omitempty"`
	RequestedBy  string `json:"requested_by,omitempty"`
}

// NewWeeklyReportTask constructs an Asynq task for the report queue. Explicit
// weeks are de-duplicated per vendor week while a task is queued.
func NewWeeklyReportTask(payload WeeklyReportPayload) (*asynq.Task, error) {
	if payload.VendorID == "" {
		return nil, fmt.Errorf("jobs: weekly report vendor required")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	opts := []asynq.Option{asynq.Queue(QueueReports), asynq.MaxRetry(3), asynq.Timeout(10 * time.Minute)}
	if !payload.PreviousWeek {
		opts = append(opts, asynq.TaskID(fmt.Sprintf("%s:%s:%d:W%02d", TaskSellThruWeekly, payload.VendorID, payload.Year, payload.Week)))
	}
	return asynq.NewTask(TaskSellThruWeekly, body, opts...), nil
}

// ParseWeeklyReportPayload decodes a task body.
func ParseWeeklyReportPayload(t *asynq.Task) (WeeklyReportPayload, error) {
	var payload WeeklyReportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return WeeklyReportPayload{}, err
	}
	return payload, nil
}
