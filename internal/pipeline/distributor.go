package pipeline

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hanzinote/internal/model"
)

// IndexedUnit is a resolved annotation: the unit plus the original segment
// index it belongs to, so the mixer can place it without caring about arrival
// order.
type IndexedUnit struct {
	Index int
	Unit  model.TextUnit
}

// Distributor maps incoming chunk units back to the originating page and the
// originating segment. Server-side pageId tagging is the authoritative path;
// untagged chunks are honored only when the batch has exactly one page.
type Distributor struct {
	pages map[string]*model.PageProcessingData
	only  *model.PageProcessingData // set when the batch holds a single page
}

func NewDistributor(pages []*model.PageProcessingData) *Distributor {
	d := &Distributor{pages: make(map[string]*model.PageProcessingData, len(pages))}
	for _, p := range pages {
		d.pages[p.PageID] = p
	}
	if len(pages) == 1 {
		d.only = pages[0]
	}
	return d
}

// Distribute resolves every unit of one chunk. The wire format carries only
// index + annotation; in segment mode the original text is recovered from the
// page's immutable segment list and out-of-range indexes are dropped with a
// warning. In paragraph mode the model decomposes the block itself, so its
// indexes are accepted as-is. Unknown pages are dropped, never a crash. A
// resolved page always appears in the result, even with zero surviving units,
// so the mixer observes every chunk.
func (d *Distributor) Distribute(ctx context.Context, chunk *model.StreamChunk) map[string][]IndexedUnit {
	logger := logutil.GetLogger(ctx)
	page := d.resolvePage(chunk.PageID)
	if page == nil {
		logger.Warn("dropping chunk for unresolvable page",
			zap.String("page_id", chunk.PageID),
			zap.Int("units", len(chunk.Units)),
		)
		return nil
	}
	out := map[string][]IndexedUnit{page.PageID: {}}
	for _, cu := range chunk.Units {
		if cu.Index < 0 || (page.Mode == model.ModeSegment && cu.Index >= len(page.TextSegments)) {
			logger.Warn("dropping unit with out-of-range index",
				zap.String("page_id", page.PageID),
				zap.Int("index", cu.Index),
				zap.Int("segments", len(page.TextSegments)),
			)
			continue
		}
		out[page.PageID] = append(out[page.PageID], IndexedUnit{
			Index: cu.Index,
			Unit:  buildUnit(page, cu),
		})
	}
	return out
}

func (d *Distributor) resolvePage(pageID string) *model.PageProcessingData {
	if pageID != "" {
		return d.pages[pageID]
	}
	return d.only
}

func buildUnit(page *model.PageProcessingData, cu model.ChunkUnit) model.TextUnit {
	translated := cu.Translation
	// Paragraph-mode units past the submitted block carry no original text of
	// their own; the model invented the decomposition.
	original := ""
	if cu.Index < len(page.TextSegments) {
		original = page.TextSegments[cu.Index]
	}
	unit := model.TextUnit{
		OriginalText:   original,
		TranslatedText: &translated,
		SourceLanguage: cu.SourceLanguage,
		TargetLanguage: cu.TargetLanguage,
		SegmentType:    segmentTypeOf(cu.Type),
	}
	if cu.Pinyin != "" {
		pinyin := cu.Pinyin
		unit.Pinyin = &pinyin
	}
	if unit.SourceLanguage == "" {
		unit.SourceLanguage = page.SourceLanguage
	}
	if unit.TargetLanguage == "" {
		unit.TargetLanguage = page.TargetLanguage
	}
	return unit
}

func segmentTypeOf(wire string) model.SegmentType {
	switch model.SegmentType(wire) {
	case model.SegmentTypeTitle:
		return model.SegmentTypeTitle
	case model.SegmentTypeSentence:
		return model.SegmentTypeSentence
	default:
		return model.SegmentTypeUnknown
	}
}
