package storage

import "time"

// Finding is a stored finding for one file.
type Finding struct {
	Path    string `json:"path"`
	Key     string `json:"key"`
	Line    int    `json:"line"`
	Char    int    `json:"character"`
	EndLine int    `json:"endLine"`
	EndChar int    `json:"endCharacter"`
	Status  string `json:"status"` // limited | newly
	Label   string `json:"label"`

	FirstSeenAt time.Time `json:"firstSeenAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}

// Change captures a finding appearing or disappearing between runs.
type Change struct {
	OccurredAt time.Time `json:"occurredAt"`
	RunID      string    `json:"runId"`

	Path   string `json:"path"`
	Key    string `json:"key"`
	Line   int    `json:"line"`
	Char   int    `json:"character"`
	Status string `json:"status"`
	Label  string `json:"label"`

	ChangeType string `json:"changeType"` // added | updated | removed
}

// Run is one recorded scan.
type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	Files     int       `json:"files"`
	Findings  int       `json:"findings"`
}

// FileStats aggregates current findings per status.
type FileStats struct {
	Status   string `json:"status"`
	Files    int    `json:"files"`
	Findings int    `json:"findings"`
}
