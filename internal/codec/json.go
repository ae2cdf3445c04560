package codec

import (
	"encoding/json"
	"fmt"

	"dp-go/internal/dp"
)

// EncodeJSON serializes a snapshot as indented JSON.
func EncodeJSON(s *dp.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot json: %w", err)
	}
	return data, nil
}

// DecodeJSON parses a JSON snapshot body.
func DecodeJSON(data []byte) (*dp.Snapshot, error) {
	var s dp.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", dp.ErrInvalidData, err)
	}
	if s.ID == "" {
		return nil, fmt.Errorf("%w: snapshot has no id", dp.ErrInvalidData)
	}
	return &s, nil
}

// EncodeSummary serializes a summary as compact JSON.
func EncodeSummary(s dp.SnapshotSummary) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding summary json: %w", err)
	}
	return data, nil
}

// DecodeSummary parses a summary written by EncodeSummary.
func DecodeSummary(data []byte) (dp.SnapshotSummary, error) {
	var s dp.SnapshotSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return dp.SnapshotSummary{}, fmt.Errorf("%w: %v", dp.ErrInvalidData, err)
	}
	if s.ID == "" {
		return dp.SnapshotSummary{}, fmt.Errorf("%w: summary has no id", dp.ErrInvalidData)
	}
	return s, nil
}
