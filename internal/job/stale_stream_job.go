package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hanzinote/internal/service"
)

// StaleStreamJob flips pages stuck in preparing/streaming to failed so the
// app stops polling them and offers a retry. Pages get stuck when the process
// dies mid-stream; nothing in the DB marks them otherwise.
type StaleStreamJob struct {
	notes     *service.NoteService
	olderThan time.Duration
}

func NewStaleStreamJob(notes *service.NoteService, olderThan time.Duration) *StaleStreamJob {
	return &StaleStreamJob{notes: notes, olderThan: olderThan}
}

func (j *StaleStreamJob) Name() string {
	return "stale_stream_cleanup"
}

func (j *StaleStreamJob) Run(ctx context.Context) error {
	olderThan := j.olderThan
	if olderThan <= 0 {
		olderThan = 30 * time.Minute
	}
	count, err := j.notes.FailStalePages(ctx, olderThan)
	if err != nil {
		return err
	}
	if count > 0 {
		logutil.GetLogger(ctx).Info("marked stale pages failed", zap.Int("count", count))
	}
	return nil
}
