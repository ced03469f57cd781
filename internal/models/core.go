package models

import (
	"time"
)

// Core domain models

// Operation is one journaled invocation (validate, migrate, backup, restore
// or connection test).
type Operation struct {
	ID         string    `json:"id"`
	Operation  string    `json:"operation"` // validate, migrate, backup, restore, test
	Status     string    `json:"status"`    // succeeded, failed, timed_out
	Message    string    `json:"message"`
	Source     string    `json:"source,omitempty"`   // uploaded file name or server path
	Target     string    `json:"target,omitempty"`   // redacted connection description
	Artifact   string    `json:"artifact,omitempty"` // produced file, backups only
	Checksum   string    `json:"checksum,omitempty"` // xxh3 of Artifact
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
}

// Config holds the journal database location
type Config struct {
	URI string // SQLite file path, ~ expanded
}

// OperationStats aggregates journal entries for one operation kind
type OperationStats struct {
	Operation     string         `json:"operation"`
	Total         int            `json:"total"`
	StatusCounts  map[string]int `json:"status_counts"`
	AvgDurationMs float64        `json:"avg_duration_ms"`
	LastRun       *Operation     `json:"last_run,omitempty"`
}
