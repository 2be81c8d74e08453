package api

import (
	"context"

	"github.com/felix-dieterle/mycontracts/internal/records"
)

// RecordReader abstracts the store reads needed for API queries.
type RecordReader interface {
	List(ctx context.Context, statuses ...records.Status) ([]*records.OcrRecord, error)
	Stats(ctx context.Context) (records.Stats, error)
}

// RecordService exposes read-only record operations returning API DTOs.
type RecordService struct {
	store RecordReader
}

// NewRecordService constructs a RecordService around the provided reader.
func NewRecordService(store RecordReader) *RecordService {
	if store == nil {
		return nil
	}
	return &RecordService{store: store}
}

// List returns records filtered by status.
func (s *RecordService) List(ctx context.Context, statuses ...records.Status) ([]Record, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	recs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromRecords(recs), nil
}

// Stats returns record counts keyed by status string.
func (s *RecordService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeRecordStats(stats), nil
}
