package models

import "time"

// SummaryStats are the aggregate counters embedded in a report row.
type SummaryStats struct {
	TotalSignals   int            `json:"totalSignals"`
	HighPriority   int            `json:"highPriority"`
	MediumPriority int            `json:"mediumPriority"`
	LowPriority    int            `json:"lowPriority"`
	ByGeo          map[string]int `json:"byGeo,omitempty"`
	BySignalType   map[string]int `json:"bySignalType,omitempty"`
	AvgScore       float64        `json:"avgScore"`
}

// Report is a compiled digest over a reporting window. SentAt is the only
// mutable field and is set at most once, after a successful email dispatch.
type Report struct {
	ID              string       `json:"id" db:"id"`
	CycleStart      time.Time    `json:"cycle_start" db:"cycle_start"`
	CycleEnd        time.Time    `json:"cycle_end" db:"cycle_end"`
	ContentMarkdown string       `json:"content_markdown" db:"content_markdown"`
	ContentHTML     string       `json:"content_html" db:"content_html"`
	SummaryStats    SummaryStats `json:"summary_stats" db:"summary_stats"`
	SentAt          *time.Time   `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
}
