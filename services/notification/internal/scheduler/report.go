package scheduler

import "time"

const (
	JobDueSoon = "due-soon"
	JobOverdue = "overdue"
)

// Report summarizes one job run.
type Report struct {
	Job        string    `json:"job"`
	StartedAt  time.Time `json:"startedAt"`
	Scanned    int       `json:"scanned"`
	Created    int       `json:"created"`
	Skipped    int       `json:"skipped"`
	NotSent    int       `json:"notSent"`
	Flagged    int       `json:"flagged"`
	Mailed     int       `json:"mailed"`
	Failed     int       `json:"failed"`
	KindErrors int       `json:"kindErrors"`
}
