package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/hanzinote/internal/model"
)

func annotatedUnit(original, translated string) model.TextUnit {
	return model.TextUnit{
		OriginalText:   original,
		TranslatedText: &translated,
		SourceLanguage: "zh-CN",
		TargetLanguage: "en",
		SegmentType:    model.SegmentTypeSentence,
	}
}

func TestMixerProgressMonotone(t *testing.T) {
	page := pageData("p1", "一。", "二。", "三。", "四。")
	m := NewMixer(page)

	require.Equal(t, model.StatusPreparing, m.Status())
	snap := m.Snapshot()
	require.Equal(t, 0.0, snap.Progress)
	require.Len(t, snap.Units, 4) // all placeholders

	prev := 0.0
	for i := 0; i < 4; i++ {
		m.Apply([]IndexedUnit{{Index: i, Unit: annotatedUnit(page.TextSegments[i], "x")}})
		snap := m.Snapshot()
		require.GreaterOrEqual(t, snap.Progress, prev)
		require.Equal(t, model.StatusStreaming, snap.StreamingStatus)
		require.Len(t, snap.Units, 4)
		prev = snap.Progress
	}
	require.Equal(t, 1.0, prev)
}

func TestMixerPlaceholdersWhileStreaming(t *testing.T) {
	page := pageData("p1", "标题", "正文一。", "正文二。")
	page.DetectedTitles = []string{"标题"}
	m := NewMixer(page)

	m.Apply([]IndexedUnit{{Index: 2, Unit: annotatedUnit("正文二。", "Body two.")}})
	snap := m.Snapshot()
	require.Len(t, snap.Units, 3)
	// Annotated unit first in receipt order, then placeholders by index.
	require.Equal(t, "正文二。", snap.Units[0].OriginalText)
	require.True(t, snap.Units[0].Annotated())
	require.Equal(t, "标题", snap.Units[1].OriginalText)
	require.False(t, snap.Units[1].Annotated())
	require.Equal(t, model.SegmentTypeTitle, snap.Units[1].SegmentType)
	require.Equal(t, model.SegmentTypeSentence, snap.Units[2].SegmentType)
}

func TestMixerFirstChunkFlipsToStreaming(t *testing.T) {
	// A chunk whose units were all dropped still means data is flowing.
	page := pageData("p1", "一。")
	m := NewMixer(page)
	m.Apply(nil)
	require.Equal(t, model.StatusStreaming, m.Status())
	require.Len(t, m.Snapshot().Units, 1) // placeholder only
	require.Equal(t, 0, m.Snapshot().CompletedUnits)
}

func TestMixerFinalizeDropsLeftovers(t *testing.T) {
	page := pageData("p1", "一。", "二。", "三。")
	m := NewMixer(page)
	m.Apply([]IndexedUnit{
		{Index: 0, Unit: annotatedUnit("一。", "One.")},
		{Index: 2, Unit: annotatedUnit("三。", "Three.")},
	})
	m.Finalize()
	snap := m.Snapshot()
	require.Equal(t, model.StatusCompleted, snap.StreamingStatus)
	require.Equal(t, 1.0, snap.Progress)
	require.Len(t, snap.Units, 2)
	for _, u := range snap.Units {
		require.True(t, u.Annotated(), "no un-annotated unit may survive completion")
	}
	require.Equal(t, 2, snap.CompletedUnits)
}

func TestMixerReannotationOverwrites(t *testing.T) {
	page := pageData("p1", "一。")
	m := NewMixer(page)
	m.Apply([]IndexedUnit{{Index: 0, Unit: annotatedUnit("一。", "One.")}})
	m.Apply([]IndexedUnit{{Index: 0, Unit: annotatedUnit("一。", "1.")}})
	snap := m.Snapshot()
	require.Len(t, snap.Units, 1)
	require.Equal(t, "1.", *snap.Units[0].TranslatedText)
	require.Equal(t, 1, snap.CompletedUnits)
}

func TestMixerTerminalOneWay(t *testing.T) {
	page := pageData("p1", "一。")
	m := NewMixer(page)
	m.Finalize()
	m.Apply([]IndexedUnit{{Index: 0, Unit: annotatedUnit("一。", "One.")}})
	require.Equal(t, model.StatusCompleted, m.Status())
	require.Empty(t, m.Snapshot().Units)

	m2 := NewMixer(page)
	m2.MarkFailed()
	m2.Finalize()
	require.Equal(t, model.StatusFailed, m2.Status())

	m3 := NewMixer(page)
	m3.Finalize()
	m3.MarkFailed()
	require.Equal(t, model.StatusCompleted, m3.Status())
}

func TestMixerParagraphModeObservesTotal(t *testing.T) {
	page := &model.PageProcessingData{
		PageID:         "p1",
		TextSegments:   []string{"整段文字在这里。"},
		Mode:           model.ModeParagraph,
		SourceLanguage: "zh-CN",
		TargetLanguage: "en",
	}
	m := NewMixer(page)
	m.ObserveTotal(5)
	m.Apply([]IndexedUnit{{Index: 0, Unit: annotatedUnit("整段文字在这里。", "All text here.")}})
	snap := m.Snapshot()
	// No placeholders in paragraph mode, progress measured against the
	// model-announced total.
	require.Len(t, snap.Units, 1)
	require.InDelta(t, 0.2, snap.Progress, 1e-9)
}

func TestMixerFullTextJoins(t *testing.T) {
	page := pageData("p1", "一。", "二。")
	m := NewMixer(page)
	m.Apply([]IndexedUnit{
		{Index: 0, Unit: annotatedUnit("一。", "One.")},
		{Index: 1, Unit: annotatedUnit("二。", "Two.")},
	})
	m.Finalize()
	snap := m.Snapshot()
	require.Equal(t, "一。\n二。", snap.FullOriginalText)
	require.Equal(t, "One.\nTwo.", snap.FullTranslatedText)
}
