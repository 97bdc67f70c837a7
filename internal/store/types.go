package store

import "time"

// Run statuses as stored in the runs table.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Sides a pruned snapshot can belong to.
const (
	SideLocal  = "local"
	SideRemote = "remote"
)

// Run represents one backup cycle.
type Run struct {
	ID           int64
	StartedAt    time.Time
	FinishedAt   time.Time
	Status       string
	SnapshotPath string // snapshot created in this run, if any
	ParentPath   string // incremental parent used for the send, if any
	Error        string
}

// PrunedSnapshot records a snapshot deleted during policing.
type PrunedSnapshot struct {
	ID       int64
	RunID    int64
	Side     string // "local" or "remote"
	Path     string
	PrunedAt time.Time
}
