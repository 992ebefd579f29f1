package storage

import (
	"encoding/json"
	"errors"

	"alembic/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// CurrentVersion is the version stamp new records are written with.
func CurrentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeGrimoire(g model.GrimoireRecord) ([]byte, error) {
	return json.Marshal(g)
}

func DecodeGrimoire(data []byte) (model.GrimoireRecord, error) {
	var record model.GrimoireRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.GrimoireRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.GrimoireRecord{}, err
	}
	return record, nil
}

func EncodeRun(r model.RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeSnapshot(s model.SnapshotRecord) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeSnapshot(data []byte) (model.SnapshotRecord, error) {
	var record model.SnapshotRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.SnapshotRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.SnapshotRecord{}, err
	}
	return record, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
