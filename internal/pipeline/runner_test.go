package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/hanzinote/internal/annotate"
	"github.com/xxxsen/hanzinote/internal/model"
)

type fakeAnnotator struct {
	chunks []model.StreamChunk
	gotReq *annotate.BatchRequest
}

func (f *fakeAnnotator) Dispatch(ctx context.Context, req *annotate.BatchRequest) <-chan model.StreamChunk {
	f.gotReq = req
	out := make(chan model.StreamChunk, len(f.chunks))
	go func() {
		defer close(out)
		for _, chunk := range f.chunks {
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

type recordingSink struct {
	mu        sync.Mutex
	persisted map[string]*model.ProcessedText
	terminal  map[string]*model.ProcessedText
	progress  map[string]float64
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		persisted: make(map[string]*model.ProcessedText),
		terminal:  make(map[string]*model.ProcessedText),
		progress:  make(map[string]float64),
	}
}

func (r *recordingSink) PersistPage(ctx context.Context, pageID string, pt *model.ProcessedText) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persisted[pageID] = pt
	return nil
}

func (r *recordingSink) NotifyProgress(ctx context.Context, pageID string, progress float64, completedUnits int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress[pageID] = progress
	return nil
}

func (r *recordingSink) PersistTerminal(ctx context.Context, pageID string, pt *model.ProcessedText, completedAt int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.terminal[pageID] = pt
	return nil
}

func TestRunnerSinglePageHappyPath(t *testing.T) {
	page := pageData("p1", "你好。", "世界。")
	ann := &fakeAnnotator{chunks: []model.StreamChunk{
		{ChunkIndex: 0, TotalChunks: 2, Units: []model.ChunkUnit{{Index: 0, Translation: "Hello."}}},
		{ChunkIndex: 1, TotalChunks: 2, Units: []model.ChunkUnit{{Index: 1, Translation: "World."}}, IsComplete: true},
	}}
	rec := newRecordingSink()
	sink := NewAsyncSink(rec, 16)
	runner := NewRunner(ann, sink)

	require.NoError(t, runner.Run(context.Background(), []*model.PageProcessingData{page}))
	sink.Close()

	require.NotNil(t, ann.gotReq)
	require.Equal(t, []string{"你好。", "世界。"}, ann.gotReq.TextSegments)
	require.Empty(t, ann.gotReq.PageSegments, "single-page batches skip the page map")
	require.True(t, ann.gotReq.NeedPinyin)

	final := rec.terminal["p1"]
	require.NotNil(t, final)
	require.Equal(t, model.StatusCompleted, final.StreamingStatus)
	require.Equal(t, 1.0, final.Progress)
	require.Len(t, final.Units, 2)
	require.Equal(t, "Hello.", *final.Units[0].TranslatedText)
}

func TestRunnerMultiPageRouting(t *testing.T) {
	p1 := pageData("p1", "一。")
	p2 := pageData("p2", "二。")
	ann := &fakeAnnotator{chunks: []model.StreamChunk{
		{PageID: "p1", Units: []model.ChunkUnit{{Index: 0, Translation: "One."}}},
		{PageID: "p2", Units: []model.ChunkUnit{{Index: 0, Translation: "Two."}}, IsComplete: true},
	}}
	rec := newRecordingSink()
	sink := NewAsyncSink(rec, 16)
	runner := NewRunner(ann, sink)

	require.NoError(t, runner.Run(context.Background(), []*model.PageProcessingData{p1, p2}))
	sink.Close()

	require.Len(t, ann.gotReq.PageSegments, 2)
	require.Equal(t, "One.", *rec.terminal["p1"].Units[0].TranslatedText)
	require.Equal(t, "Two.", *rec.terminal["p2"].Units[0].TranslatedText)
}

func TestRunnerErrorChunkWithoutUnitsIgnored(t *testing.T) {
	page := pageData("p1", "一。")
	ann := &fakeAnnotator{chunks: []model.StreamChunk{
		{IsError: true, Error: "model hiccup"},
		{Units: []model.ChunkUnit{{Index: 0, Translation: "One."}}, IsComplete: true},
	}}
	rec := newRecordingSink()
	sink := NewAsyncSink(rec, 16)
	runner := NewRunner(ann, sink)

	require.NoError(t, runner.Run(context.Background(), []*model.PageProcessingData{page}))
	sink.Close()

	require.Equal(t, model.StatusCompleted, rec.terminal["p1"].StreamingStatus)
	require.True(t, rec.terminal["p1"].Units[0].Annotated())
}

func TestRunnerFallbackTerminatesFailed(t *testing.T) {
	// Error chunks that do carry units (the transport-failure fallback) are
	// applied, and the page terminates failed so a manual retry is offered.
	page := pageData("p1", "一。")
	fallback := "[streaming failed]"
	ann := &fakeAnnotator{chunks: []model.StreamChunk{
		{Units: []model.ChunkUnit{{Index: 0, Translation: fallback}}, IsComplete: true, IsError: true, Error: "stream transport failed"},
	}}
	rec := newRecordingSink()
	sink := NewAsyncSink(rec, 16)
	runner := NewRunner(ann, sink)

	require.NoError(t, runner.Run(context.Background(), []*model.PageProcessingData{page}))
	sink.Close()

	final := rec.terminal["p1"]
	require.NotNil(t, final)
	require.Equal(t, model.StatusFailed, final.StreamingStatus)
	require.Equal(t, fallback, *final.Units[0].TranslatedText)
}

func TestRunnerParagraphKeepsModelDecomposition(t *testing.T) {
	// Paragraph pages submit one block; the model answers with its own
	// multi-unit split, which must survive intact.
	page := pageData("p1", "整段文字。")
	page.Mode = model.ModeParagraph
	ann := &fakeAnnotator{chunks: []model.StreamChunk{
		{ChunkIndex: 0, TotalChunks: 3, Units: []model.ChunkUnit{{Index: 0, Translation: "First."}}},
		{ChunkIndex: 1, TotalChunks: 3, Units: []model.ChunkUnit{
			{Index: 1, Translation: "Second."},
			{Index: 2, Translation: "Third."},
		}, IsComplete: true},
	}}
	rec := newRecordingSink()
	sink := NewAsyncSink(rec, 16)
	runner := NewRunner(ann, sink)

	require.NoError(t, runner.Run(context.Background(), []*model.PageProcessingData{page}))
	sink.Close()

	final := rec.terminal["p1"]
	require.NotNil(t, final)
	require.Equal(t, model.StatusCompleted, final.StreamingStatus)
	require.Len(t, final.Units, 3)
	require.Equal(t, 3, final.CompletedUnits)
	require.Equal(t, "整段文字。", final.Units[0].OriginalText)
	require.Equal(t, "", final.Units[1].OriginalText)
	require.Equal(t, "Third.", *final.Units[2].TranslatedText)
}

func TestRunnerCancelledContext(t *testing.T) {
	page := pageData("p1", "一。")
	blocking := &blockingAnnotator{}
	rec := newRecordingSink()
	sink := NewAsyncSink(rec, 16)
	runner := NewRunner(blocking, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx, []*model.PageProcessingData{page}) }()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not return after cancellation")
	}
	sink.Close()
	// No terminal write: the page stays resumable.
	require.Nil(t, rec.terminal["p1"])
}

func TestRunnerCancelledWithClosedStream(t *testing.T) {
	// After cancellation the real annotator closes its channel; whichever
	// select branch wins, the run must not finalize. Repeated to cover both
	// branch orders.
	page := pageData("p1", "一。")
	for i := 0; i < 50; i++ {
		rec := newRecordingSink()
		sink := NewAsyncSink(rec, 16)
		runner := NewRunner(&closedAnnotator{}, sink)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := runner.Run(ctx, []*model.PageProcessingData{page})
		sink.Close()

		require.ErrorIs(t, err, context.Canceled)
		require.Nil(t, rec.terminal["p1"], "cancelled run must leave the page resumable")
	}
}

// blockingAnnotator never emits and never closes, forcing the runner to exit
// through its context branch.
type blockingAnnotator struct{}

func (b *blockingAnnotator) Dispatch(ctx context.Context, req *annotate.BatchRequest) <-chan model.StreamChunk {
	return make(chan model.StreamChunk)
}

// closedAnnotator hands back an already-closed channel, the state the real
// annotator reaches right after cancellation.
type closedAnnotator struct{}

func (c *closedAnnotator) Dispatch(ctx context.Context, req *annotate.BatchRequest) <-chan model.StreamChunk {
	out := make(chan model.StreamChunk)
	close(out)
	return out
}
