package pipeline

import (
	"context"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hanzinote/internal/model"
)

// UpdateSink is the boundary into shared external state (the document store).
// Every write carries the full current state, so writes are idempotent
// last-write-wins overwrites; no merge logic on the store side.
type UpdateSink interface {
	PersistPage(ctx context.Context, pageID string, pt *model.ProcessedText) error
	NotifyProgress(ctx context.Context, pageID string, progress float64, completedUnits int) error
	PersistTerminal(ctx context.Context, pageID string, pt *model.ProcessedText, completedAt int64) error
}

type sinkTask struct {
	name   string
	pageID string
	fn     func(ctx context.Context) error
}

// AsyncSink hands store writes to a single worker so the streaming loop never
// waits on persistence. Write failures are logged and swallowed: during a
// session the mixer's in-memory state is authoritative, not storage. When the
// queue is full the write is dropped; a later snapshot supersedes it anyway.
type AsyncSink struct {
	sink  UpdateSink
	queue chan sinkTask
	wg    sync.WaitGroup
	once  sync.Once
}

const defaultSinkDepth = 64

func NewAsyncSink(sink UpdateSink, depth int) *AsyncSink {
	if depth <= 0 {
		depth = defaultSinkDepth
	}
	s := &AsyncSink{
		sink:  sink,
		queue: make(chan sinkTask, depth),
	}
	s.wg.Add(1)
	go s.worker()
	return s
}

func (s *AsyncSink) worker() {
	defer s.wg.Done()
	ctx := context.Background()
	for task := range s.queue {
		if err := task.fn(ctx); err != nil {
			logutil.GetLogger(ctx).Warn("page store write failed",
				zap.String("op", task.name),
				zap.String("page_id", task.pageID),
				zap.Error(err),
			)
		}
	}
}

func (s *AsyncSink) enqueue(ctx context.Context, task sinkTask) {
	select {
	case s.queue <- task:
	default:
		logutil.GetLogger(ctx).Warn("sink queue full, dropping write",
			zap.String("op", task.name),
			zap.String("page_id", task.pageID),
		)
	}
}

func (s *AsyncSink) EnqueuePersist(ctx context.Context, pageID string, pt *model.ProcessedText) {
	s.enqueue(ctx, sinkTask{
		name:   "persist",
		pageID: pageID,
		fn: func(ctx context.Context) error {
			return s.sink.PersistPage(ctx, pageID, pt)
		},
	})
}

func (s *AsyncSink) EnqueueProgress(ctx context.Context, pageID string, progress float64, completedUnits int) {
	s.enqueue(ctx, sinkTask{
		name:   "progress",
		pageID: pageID,
		fn: func(ctx context.Context) error {
			return s.sink.NotifyProgress(ctx, pageID, progress, completedUnits)
		},
	})
}

// EnqueueTerminal records the completion timestamp and terminal status flag.
func (s *AsyncSink) EnqueueTerminal(ctx context.Context, pageID string, pt *model.ProcessedText, completedAt int64) {
	s.enqueue(ctx, sinkTask{
		name:   "terminal",
		pageID: pageID,
		fn: func(ctx context.Context) error {
			return s.sink.PersistTerminal(ctx, pageID, pt, completedAt)
		},
	})
}

// Close drains pending writes and stops the worker.
func (s *AsyncSink) Close() {
	s.once.Do(func() {
		close(s.queue)
	})
	s.wg.Wait()
}
