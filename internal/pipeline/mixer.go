package pipeline

import (
	"strings"

	"github.com/xxxsen/hanzinote/internal/model"
)

const displayModeBilingual = "bilingual"

// Mixer builds the progressive per-page state while results stream in. It is
// owned by exactly one pipeline run; nothing else mutates its page state.
//
// Segment mode: annotated units come first in receipt order, then placeholders
// for segments still pending, until completion drops never-annotated leftovers
// (the model is authoritative on final segmentation). Paragraph mode: only
// model-emitted units are used.
type Mixer struct {
	data      *model.PageProcessingData
	annotated map[int]model.TextUnit
	receipt   []int
	status    model.StreamingStatus
	expected  int
}

func NewMixer(data *model.PageProcessingData) *Mixer {
	expected := 0
	if data.Mode == model.ModeSegment {
		expected = len(data.TextSegments)
	}
	return &Mixer{
		data:      data,
		annotated: make(map[int]model.TextUnit),
		status:    model.StatusPreparing,
		expected:  expected,
	}
}

// Apply merges newly distributed units. Indexes already seen keep their
// receipt position; the annotation itself is overwritten by the latest chunk.
func (m *Mixer) Apply(units []IndexedUnit) {
	if m.status == model.StatusCompleted || m.status == model.StatusFailed {
		return
	}
	// Data is flowing; the first chunk flips the page to streaming even if
	// every one of its units was dropped.
	if m.status == model.StatusPreparing {
		m.status = model.StatusStreaming
	}
	for _, iu := range units {
		if _, seen := m.annotated[iu.Index]; !seen {
			m.receipt = append(m.receipt, iu.Index)
		}
		m.annotated[iu.Index] = iu.Unit
	}
}

// ObserveTotal records a model-supplied expected total. Only paragraph mode
// uses it; in segment mode the original segment count is authoritative.
func (m *Mixer) ObserveTotal(total int) {
	if m.data.Mode != model.ModeParagraph {
		return
	}
	if total > m.expected {
		m.expected = total
	}
}

// Finalize marks the stream complete. The status transition is one-way: a
// completed page never goes back to streaming within a session.
func (m *Mixer) Finalize() {
	if m.status == model.StatusFailed {
		return
	}
	m.status = model.StatusCompleted
	// Leftover segments the model merged away are dropped, so the emitted
	// count becomes the expected total.
	m.expected = len(m.annotated)
}

func (m *Mixer) MarkFailed() {
	if m.status == model.StatusCompleted {
		return
	}
	m.status = model.StatusFailed
}

func (m *Mixer) Status() model.StreamingStatus {
	return m.status
}

// Snapshot renders the current ordered unit sequence with progress. Output for
// a given completed-unit count is monotonically non-decreasing: units are only
// added or annotated, never removed, until the single terminal drop step.
func (m *Mixer) Snapshot() *model.ProcessedText {
	complete := m.status == model.StatusCompleted
	units := make([]model.TextUnit, 0, len(m.receipt))
	for _, idx := range m.receipt {
		units = append(units, m.annotated[idx])
	}
	if m.data.Mode == model.ModeSegment && !complete {
		for i, seg := range m.data.TextSegments {
			if _, ok := m.annotated[i]; !ok {
				units = append(units, m.placeholder(i, seg))
			}
		}
	}

	completed := len(m.annotated)
	total := m.expected
	if total <= 0 {
		total = completed
	}
	progress := 0.0
	if total > 0 {
		progress = float64(completed) / float64(total)
		if progress > 1 {
			progress = 1
		}
	}
	if complete {
		progress = 1
	}

	return &model.ProcessedText{
		Mode:               m.data.Mode,
		DisplayMode:        displayModeBilingual,
		FullOriginalText:   joinOriginals(units),
		FullTranslatedText: joinTranslations(units),
		Units:              units,
		StreamingStatus:    m.status,
		CompletedUnits:     completed,
		Progress:           progress,
	}
}

func (m *Mixer) placeholder(index int, segment string) model.TextUnit {
	segType := model.SegmentTypeSentence
	if index < len(m.data.DetectedTitles) {
		segType = model.SegmentTypeTitle
	}
	return model.TextUnit{
		OriginalText:   segment,
		SourceLanguage: m.data.SourceLanguage,
		TargetLanguage: m.data.TargetLanguage,
		SegmentType:    segType,
	}
}

func joinOriginals(units []model.TextUnit) string {
	parts := make([]string, 0, len(units))
	for _, u := range units {
		parts = append(parts, u.OriginalText)
	}
	return strings.Join(parts, "\n")
}

func joinTranslations(units []model.TextUnit) string {
	parts := make([]string, 0, len(units))
	for _, u := range units {
		if u.TranslatedText != nil {
			parts = append(parts, *u.TranslatedText)
		}
	}
	return strings.Join(parts, "\n")
}
