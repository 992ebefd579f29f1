package model

import (
	"time"

	"alembic/internal/optimizer"
	"alembic/internal/potion"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// GrimoireRecord stores a grimoire as the update script that rebuilds it
// from empty.
type GrimoireRecord struct {
	VersionedRecord
	Name      string        `json:"name"`
	Script    potion.Script `json:"script"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunStopped   RunStatus = "stopped"
	RunFailed    RunStatus = "failed"
)

type RunRecord struct {
	VersionedRecord
	ID         string           `json:"id"`
	Grimoire   string           `json:"grimoire"`
	Config     optimizer.Config `json:"config"`
	Status     RunStatus        `json:"status"`
	Error      string           `json:"error,omitempty"`
	Generation int              `json:"generation"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
}

type SnapshotRecord struct {
	VersionedRecord
	RunID    string             `json:"run_id"`
	Snapshot optimizer.Snapshot `json:"snapshot"`
}

func (r SnapshotRecord) Generation() int {
	return r.Snapshot.Generation
}
