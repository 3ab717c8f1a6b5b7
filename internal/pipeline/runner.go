package pipeline

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hanzinote/internal/annotate"
	"github.com/xxxsen/hanzinote/internal/model"
)

// Runner drives one page-batch through the streaming pipeline: dispatch,
// distribute, mix, sink. Chunks are consumed strictly one at a time, so the
// per-page unit state needs no locking; concurrent batches each get their own
// Run call and own their pages exclusively.
type Runner struct {
	annotator annotate.Annotator
	sink      *AsyncSink
}

func NewRunner(annotator annotate.Annotator, sink *AsyncSink) *Runner {
	return &Runner{annotator: annotator, sink: sink}
}

// Run processes one batch. Cancelling ctx closes the underlying stream and
// leaves pages in their current non-terminal state, which a retry can resume
// from the immutable processing records.
func (r *Runner) Run(ctx context.Context, pages []*model.PageProcessingData) error {
	if len(pages) == 0 {
		return nil
	}
	logger := logutil.GetLogger(ctx).With(zap.Int("pages", len(pages)))

	req := buildRequest(pages)
	dist := NewDistributor(pages)
	mixers := make(map[string]*Mixer, len(pages))
	for _, p := range pages {
		mixers[p.PageID] = NewMixer(p)
	}

	events := r.annotator.Dispatch(ctx, req)
	for {
		select {
		case <-ctx.Done():
			logger.Info("pipeline cancelled", zap.Error(ctx.Err()))
			return ctx.Err()
		case chunk, ok := <-events:
			if !ok {
				// The annotator also closes its channel on cancellation, and
				// the select picks branches at random; a cancelled run must
				// never finalize.
				if err := ctx.Err(); err != nil {
					logger.Info("pipeline cancelled", zap.Error(err))
					return err
				}
				r.finalize(ctx, mixers)
				logger.Info("pipeline completed")
				return nil
			}
			if chunk.IsError && len(chunk.Units) == 0 {
				// An error chunk reports a single failed remote step; it does
				// not terminate the stream.
				logger.Warn("annotation chunk error",
					zap.Int("chunk_index", chunk.ChunkIndex),
					zap.String("error", chunk.Error),
				)
				continue
			}
			r.apply(ctx, dist, mixers, &chunk)
		}
	}
}

func (r *Runner) apply(ctx context.Context, dist *Distributor, mixers map[string]*Mixer, chunk *model.StreamChunk) {
	byPage := dist.Distribute(ctx, chunk)
	for pageID, units := range byPage {
		mixer := mixers[pageID]
		if mixer == nil {
			continue
		}
		if chunk.TotalChunks > 0 {
			mixer.ObserveTotal(chunk.TotalChunks)
		}
		mixer.Apply(units)
		if chunk.IsError {
			// Fallback chunks carry sentinel units and an error flag: keep the
			// units but terminate the page failed, which makes it retryable.
			mixer.MarkFailed()
		}
		pt := mixer.Snapshot()
		r.sink.EnqueuePersist(ctx, pageID, pt)
		r.sink.EnqueueProgress(ctx, pageID, pt.Progress, pt.CompletedUnits)
	}
}

func (r *Runner) finalize(ctx context.Context, mixers map[string]*Mixer) {
	now := time.Now().UnixMilli()
	for pageID, mixer := range mixers {
		mixer.Finalize()
		r.sink.EnqueueTerminal(ctx, pageID, mixer.Snapshot(), now)
	}
}

func buildRequest(pages []*model.PageProcessingData) *annotate.BatchRequest {
	req := &annotate.BatchRequest{
		SourceLanguage: pages[0].SourceLanguage,
		TargetLanguage: pages[0].TargetLanguage,
		NeedPinyin:     true,
	}
	for _, p := range pages {
		req.TextSegments = append(req.TextSegments, p.TextSegments...)
	}
	if len(pages) > 1 {
		for _, p := range pages {
			req.PageSegments = append(req.PageSegments, annotate.PageDescriptor{
				PageID:   p.PageID,
				Segments: p.TextSegments,
				Mode:     string(p.Mode),
			})
		}
	}
	return req
}
