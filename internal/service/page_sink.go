package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/xxxsen/hanzinote/internal/model"
	"github.com/xxxsen/hanzinote/internal/repo"
)

// PageSink persists streamed page state into the pages table. Each write is a
// full overwrite of the processed snapshot plus the polling columns.
type PageSink struct {
	pages *repo.PageRepo
}

func NewPageSink(pages *repo.PageRepo) *PageSink {
	return &PageSink{pages: pages}
}

func (s *PageSink) PersistPage(ctx context.Context, pageID string, pt *model.ProcessedText) error {
	raw, err := json.Marshal(pt)
	if err != nil {
		return err
	}
	return s.pages.Update(ctx, pageID, map[string]interface{}{
		"processed":       string(raw),
		"stream_status":   string(pt.StreamingStatus),
		"progress":        pt.Progress,
		"completed_units": pt.CompletedUnits,
		"mtime":           time.Now().UnixMilli(),
	})
}

func (s *PageSink) NotifyProgress(ctx context.Context, pageID string, progress float64, completedUnits int) error {
	return s.pages.Update(ctx, pageID, map[string]interface{}{
		"progress":        progress,
		"completed_units": completedUnits,
		"mtime":           time.Now().UnixMilli(),
	})
}

func (s *PageSink) PersistTerminal(ctx context.Context, pageID string, pt *model.ProcessedText, completedAt int64) error {
	raw, err := json.Marshal(pt)
	if err != nil {
		return err
	}
	return s.pages.Update(ctx, pageID, map[string]interface{}{
		"processed":       string(raw),
		"stream_status":   string(pt.StreamingStatus),
		"progress":        pt.Progress,
		"completed_units": pt.CompletedUnits,
		"completed_at":    completedAt,
		"mtime":           time.Now().UnixMilli(),
	})
}
