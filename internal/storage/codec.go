package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"cupart/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Versioned is the version stamp records are written with.
func Versioned() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeRun(r model.Run) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.Run, error) {
	var run model.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return model.Run{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.Run{}, err
	}
	return run, nil
}

func EncodeValidationHistory(history []model.ValidationRecord) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeValidationHistory(data []byte) ([]model.ValidationRecord, error) {
	var history []model.ValidationRecord
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	for _, record := range history {
		if err := checkVersion(record.VersionedRecord); err != nil {
			return nil, fmt.Errorf("generation %d: %w", record.Generation, err)
		}
	}
	return history, nil
}

func EncodePolicy(p model.PolicyRecord) ([]byte, error) {
	return json.Marshal(p)
}

func DecodePolicy(data []byte) (model.PolicyRecord, error) {
	var record model.PolicyRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.PolicyRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.PolicyRecord{}, err
	}
	return record, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
