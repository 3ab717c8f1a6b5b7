package annotate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hanzinote/internal/model"
)

const (
	dataPrefix = "data: "
	// FallbackTranslation marks units synthesized after a stream failure; the
	// app renders them with a retry affordance.
	FallbackTranslation = "[streaming failed]"

	defaultHeaderTimeout = 5 * time.Minute
	maxStreamLineSize    = 1 << 20
)

type StreamConfig struct {
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"api_key"`
	// HeaderTimeoutSeconds bounds request initiation only; the model may take
	// minutes before the first byte. Once streaming begins there is no
	// per-chunk timeout, liveness is the caller's job via ctx.
	HeaderTimeoutSeconds int `json:"header_timeout_seconds"`
}

// StreamAnnotator talks to the remote annotation service over one chunked POST
// per batch and decodes the "data: "-prefixed JSON event lines it answers with.
type StreamAnnotator struct {
	endpoint string
	apiKey   string
	client   *http.Client
	pinyin   PinyinFunc
}

func NewStreamAnnotator(cfg StreamConfig, pinyin PinyinFunc) (*StreamAnnotator, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("annotate endpoint is required")
	}
	headerTimeout := defaultHeaderTimeout
	if cfg.HeaderTimeoutSeconds > 0 {
		headerTimeout = time.Duration(cfg.HeaderTimeoutSeconds) * time.Second
	}
	client := &http.Client{
		Transport: &http.Transport{
			ResponseHeaderTimeout: headerTimeout,
		},
	}
	return &StreamAnnotator{
		endpoint: strings.TrimSpace(cfg.Endpoint),
		apiKey:   strings.TrimSpace(cfg.APIKey),
		client:   client,
		pinyin:   pinyin,
	}, nil
}

func (a *StreamAnnotator) Dispatch(ctx context.Context, req *BatchRequest) <-chan model.StreamChunk {
	out := make(chan model.StreamChunk, 8)
	go func() {
		defer close(out)
		err := a.stream(ctx, req, out)
		if err == nil {
			return
		}
		if errors.Is(err, context.Canceled) {
			// Cancellation closes the connection and stops delivery; the
			// page's non-terminal state stays resumable, no fallback.
			return
		}
		logutil.GetLogger(ctx).Error("annotation stream failed, emitting fallback units",
			zap.Int("segments", len(req.TextSegments)),
			zap.Int("pages", len(req.PageSegments)),
			zap.Error(err),
		)
		a.emitFallback(ctx, req, out)
	}()
	return out
}

func (a *StreamAnnotator) stream(ctx context.Context, req *BatchRequest, out chan<- model.StreamChunk) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode batch request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build batch request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if a.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("open annotation stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("annotation request failed: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	logger := logutil.GetLogger(ctx)
	sc := bufio.NewScanner(resp.Body)
	buf := make([]byte, 0, 64*1024)
	sc.Buffer(buf, maxStreamLineSize)

	delivered := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		var chunk model.StreamChunk
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, dataPrefix)), &chunk); err != nil {
			// One malformed event never aborts the stream.
			logger.Warn("skipping malformed stream line", zap.Error(err))
			continue
		}
		select {
		case out <- chunk:
		case <-ctx.Done():
			return ctx.Err()
		}
		delivered++
		if chunk.IsComplete {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read annotation stream: %w", err)
	}
	if delivered == 0 {
		return fmt.Errorf("annotation stream closed without a single chunk")
	}
	return nil
}

// emitFallback synthesizes one sentinel unit per originally submitted segment
// so downstream consumers always observe a terminating sequence. Pinyin comes
// from the local dictionary when available.
func (a *StreamAnnotator) emitFallback(ctx context.Context, req *BatchRequest, out chan<- model.StreamChunk) {
	chunks := a.fallbackChunks(req)
	for _, chunk := range chunks {
		select {
		case out <- chunk:
		case <-ctx.Done():
			return
		}
	}
}

func (a *StreamAnnotator) fallbackChunks(req *BatchRequest) []model.StreamChunk {
	if len(req.PageSegments) == 0 {
		return []model.StreamChunk{{
			ChunkIndex:  0,
			TotalChunks: 1,
			Units:       a.fallbackUnits(req, req.TextSegments),
			IsComplete:  true,
			IsError:     true,
			Error:       "stream transport failed",
		}}
	}
	chunks := make([]model.StreamChunk, 0, len(req.PageSegments))
	for i, page := range req.PageSegments {
		chunks = append(chunks, model.StreamChunk{
			PageID:      page.PageID,
			ChunkIndex:  i,
			TotalChunks: len(req.PageSegments),
			Units:       a.fallbackUnits(req, page.Segments),
			IsComplete:  i == len(req.PageSegments)-1,
			IsError:     true,
			Error:       "stream transport failed",
		})
	}
	return chunks
}

func (a *StreamAnnotator) fallbackUnits(req *BatchRequest, segments []string) []model.ChunkUnit {
	units := make([]model.ChunkUnit, 0, len(segments))
	for i, seg := range segments {
		unit := model.ChunkUnit{
			Index:          i,
			Translation:    FallbackTranslation,
			SourceLanguage: req.SourceLanguage,
			TargetLanguage: req.TargetLanguage,
			Type:           string(model.SegmentTypeUnknown),
		}
		if req.NeedPinyin && a.pinyin != nil {
			if py, ok := a.pinyin(seg); ok {
				unit.Pinyin = py
			}
		}
		units = append(units, unit)
	}
	return units
}
