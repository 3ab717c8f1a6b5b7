package model

// ProcessingMode selects how a page's text is decomposed before annotation.
// In segment mode the client pre-splits into sentences/titles; in paragraph
// mode the whole text is sent as one block and the remote model decides the
// final structure.
type ProcessingMode string

const (
	ModeSegment   ProcessingMode = "segment"
	ModeParagraph ProcessingMode = "paragraph"
)

type SegmentType string

const (
	SegmentTypeTitle    SegmentType = "title"
	SegmentTypeSentence SegmentType = "sentence"
	SegmentTypeUnknown  SegmentType = "unknown"
)

type StreamingStatus string

const (
	StatusPreparing StreamingStatus = "preparing"
	StatusStreaming StreamingStatus = "streaming"
	StatusCompleted StreamingStatus = "completed"
	StatusFailed    StreamingStatus = "failed"
)

// TextUnit is one sentence, title or paragraph-level chunk of source text.
// OriginalText is assigned once at split time and never rewritten; annotation
// only fills TranslatedText and Pinyin.
type TextUnit struct {
	OriginalText   string      `json:"original_text"`
	TranslatedText *string     `json:"translated_text,omitempty"`
	Pinyin         *string     `json:"pinyin,omitempty"`
	SourceLanguage string      `json:"source_language"`
	TargetLanguage string      `json:"target_language"`
	SegmentType    SegmentType `json:"segment_type"`
}

func (u *TextUnit) Annotated() bool {
	return u.TranslatedText != nil
}

// ProcessedText is the progressive, renderable state of one page while
// annotation results stream in. Only the mixer mutates it, one writer per page.
type ProcessedText struct {
	Mode               ProcessingMode  `json:"mode"`
	DisplayMode        string          `json:"display_mode"`
	FullOriginalText   string          `json:"full_original_text"`
	FullTranslatedText string          `json:"full_translated_text"`
	Units              []TextUnit      `json:"units"`
	StreamingStatus    StreamingStatus `json:"streaming_status"`
	CompletedUnits     int             `json:"completed_units"`
	Progress           float64         `json:"progress"`
}
