package model

// PageProcessingData binds one page's OCR output, its unit sequence and its
// processing mode. It is created once per page right after OCR and never
// mutated afterwards; a retry re-dispatches from the same record without
// re-running OCR or splitting. TextSegments order is significant: the segment
// index is the join key the annotation stream uses to address units.
type PageProcessingData struct {
	PageID         string         `json:"page_id"`
	TextSegments   []string       `json:"text_segments"`
	Mode           ProcessingMode `json:"mode"`
	SourceLanguage string         `json:"source_language"`
	TargetLanguage string         `json:"target_language"`

	// Provenance from the clean/split stage, kept for diagnostics and for
	// paragraph-mode fallback.
	DetectedTitles []string `json:"detected_titles,omitempty"`
	OriginalText   string   `json:"original_text"`
	CleanedText    string   `json:"cleaned_text"`
	ReorderedText  string   `json:"reordered_text"`
}
