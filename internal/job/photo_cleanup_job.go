package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hanzinote/internal/filestore"
	"github.com/xxxsen/hanzinote/internal/repo"
)

const photoCleanupBatch = 200

// PhotoCleanupJob purges pages of deleted notes once the grace period has
// passed: photo first, then the row. A page whose photo delete fails stays
// soft-deleted and is retried on the next run.
type PhotoCleanupJob struct {
	pages     *repo.PageRepo
	store     filestore.Store
	olderThan time.Duration
}

func NewPhotoCleanupJob(pages *repo.PageRepo, store filestore.Store, olderThan time.Duration) *PhotoCleanupJob {
	return &PhotoCleanupJob{pages: pages, store: store, olderThan: olderThan}
}

func (j *PhotoCleanupJob) Name() string {
	return "photo_cleanup"
}

func (j *PhotoCleanupJob) Run(ctx context.Context) error {
	olderThan := j.olderThan
	if olderThan <= 0 {
		olderThan = 24 * time.Hour
	}
	pages, err := j.pages.ListDeleted(ctx, olderThan, photoCleanupBatch)
	if err != nil {
		return err
	}
	purged := 0
	for _, page := range pages {
		logger := logutil.GetLogger(ctx).With(zap.String("page_id", page.ID))
		if page.PhotoKey != "" {
			if err := j.store.Delete(ctx, page.PhotoKey); err != nil {
				logger.Warn("delete page photo failed", zap.String("photo_key", page.PhotoKey), zap.Error(err))
				continue
			}
		}
		if err := j.pages.Purge(ctx, page.ID); err != nil {
			logger.Warn("purge page row failed", zap.Error(err))
			continue
		}
		purged++
	}
	if purged > 0 {
		logutil.GetLogger(ctx).Info("purged deleted pages", zap.Int("count", purged))
	}
	return nil
}
