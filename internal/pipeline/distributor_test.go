package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/hanzinote/internal/model"
)

func pageData(id string, segments ...string) *model.PageProcessingData {
	return &model.PageProcessingData{
		PageID:         id,
		TextSegments:   segments,
		Mode:           model.ModeSegment,
		SourceLanguage: "zh-CN",
		TargetLanguage: "en",
	}
}

func TestDistributeSinglePageUntaggedChunk(t *testing.T) {
	page := pageData("p1", "你好。", "世界。")
	d := NewDistributor([]*model.PageProcessingData{page})

	chunk := &model.StreamChunk{
		Units: []model.ChunkUnit{
			{Index: 1, Translation: "World.", Pinyin: "shì jiè"},
			{Index: 0, Translation: "Hello.", Type: "sentence"},
		},
	}
	byPage := d.Distribute(context.Background(), chunk)
	require.Len(t, byPage, 1)
	units := byPage["p1"]
	require.Len(t, units, 2)

	require.Equal(t, 1, units[0].Index)
	require.Equal(t, "世界。", units[0].Unit.OriginalText)
	require.Equal(t, "World.", *units[0].Unit.TranslatedText)
	require.Equal(t, "shì jiè", *units[0].Unit.Pinyin)
	require.Equal(t, model.SegmentTypeUnknown, units[0].Unit.SegmentType)
	// Languages missing on the wire fall back to the page's.
	require.Equal(t, "zh-CN", units[0].Unit.SourceLanguage)
	require.Equal(t, "en", units[0].Unit.TargetLanguage)

	require.Equal(t, model.SegmentTypeSentence, units[1].Unit.SegmentType)
	require.Nil(t, units[1].Unit.Pinyin)
}

func TestDistributeMultiPageByTag(t *testing.T) {
	p1 := pageData("p1", "第一页。")
	p2 := pageData("p2", "第二页。")
	d := NewDistributor([]*model.PageProcessingData{p1, p2})

	byPage := d.Distribute(context.Background(), &model.StreamChunk{
		PageID: "p2",
		Units:  []model.ChunkUnit{{Index: 0, Translation: "Second page."}},
	})
	require.Len(t, byPage, 1)
	require.Equal(t, "第二页。", byPage["p2"][0].Unit.OriginalText)
}

func TestDistributeMultiPageUntaggedDropped(t *testing.T) {
	p1 := pageData("p1", "一。")
	p2 := pageData("p2", "二。")
	d := NewDistributor([]*model.PageProcessingData{p1, p2})

	// Ambiguous chunk: no page tag and more than one candidate page.
	byPage := d.Distribute(context.Background(), &model.StreamChunk{
		Units: []model.ChunkUnit{{Index: 0, Translation: "One."}},
	})
	require.Empty(t, byPage)
}

func TestDistributeUnknownPageDropped(t *testing.T) {
	d := NewDistributor([]*model.PageProcessingData{pageData("p1", "一。")})
	byPage := d.Distribute(context.Background(), &model.StreamChunk{
		PageID: "missing",
		Units:  []model.ChunkUnit{{Index: 0, Translation: "One."}},
	})
	require.Empty(t, byPage)
}

func TestDistributeOutOfRangeIndexDropped(t *testing.T) {
	d := NewDistributor([]*model.PageProcessingData{pageData("p1", "一。")})
	byPage := d.Distribute(context.Background(), &model.StreamChunk{
		PageID: "p1",
		Units: []model.ChunkUnit{
			{Index: -1, Translation: "bad"},
			{Index: 5, Translation: "bad"},
			{Index: 0, Translation: "One."},
		},
	})
	require.Len(t, byPage["p1"], 1)
	require.Equal(t, 0, byPage["p1"][0].Index)

	// Even when every unit is dropped the resolved page stays in the result,
	// so the mixer still sees the chunk.
	byPage = d.Distribute(context.Background(), &model.StreamChunk{
		PageID: "p1",
		Units:  []model.ChunkUnit{{Index: 9, Translation: "bad"}},
	})
	units, ok := byPage["p1"]
	require.True(t, ok)
	require.Empty(t, units)
}

func TestDistributeParagraphAcceptsModelIndexes(t *testing.T) {
	// A paragraph page submits one block; the model answers with its own
	// decomposition, whose indexes exceed the segment list.
	page := pageData("p1", "整段文字在这里。")
	page.Mode = model.ModeParagraph
	d := NewDistributor([]*model.PageProcessingData{page})

	byPage := d.Distribute(context.Background(), &model.StreamChunk{
		Units: []model.ChunkUnit{
			{Index: 0, Translation: "First."},
			{Index: 1, Translation: "Second."},
			{Index: 2, Translation: "Third."},
		},
	})
	units := byPage["p1"]
	require.Len(t, units, 3)
	require.Equal(t, "整段文字在这里。", units[0].Unit.OriginalText)
	require.Equal(t, "", units[1].Unit.OriginalText)
	require.Equal(t, "Third.", *units[2].Unit.TranslatedText)
}
