package annotate

import (
	"context"

	"github.com/xxxsen/hanzinote/internal/model"
)

// PageDescriptor tells the annotation service which submitted segments belong
// to which page, so it can tag every emitted chunk with a pageId.
type PageDescriptor struct {
	PageID   string   `json:"pageId"`
	Segments []string `json:"segments"`
	Mode     string   `json:"mode"`
}

// BatchRequest is the wire request for one processing batch. TextSegments is
// the flat unit list across all pages; PageSegments is present only for
// multi-page batches.
type BatchRequest struct {
	TextSegments   []string         `json:"textSegments"`
	PageSegments   []PageDescriptor `json:"pageSegments,omitempty"`
	SourceLanguage string           `json:"sourceLanguage"`
	TargetLanguage string           `json:"targetLanguage"`
	NeedPinyin     bool             `json:"needPinyin"`
}

// Annotator opens one annotation stream per batch. The returned channel always
// terminates: on transport failure the dispatcher substitutes synthetic
// sentinel units for every submitted segment instead of surfacing an error.
type Annotator interface {
	Dispatch(ctx context.Context, req *BatchRequest) <-chan model.StreamChunk
}

// PinyinFunc is the local pinyin fallback lookup, consulted only when the
// remote service is unreachable.
type PinyinFunc func(text string) (string, bool)
