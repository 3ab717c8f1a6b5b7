package model

// ChunkUnit is one annotated unit inside a StreamChunk. The wire format never
// re-sends original text: Index points back into the submitted segment list of
// the page the chunk belongs to.
type ChunkUnit struct {
	Index          int    `json:"index"`
	Translation    string `json:"translation"`
	Pinyin         string `json:"pinyin"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
	Type           string `json:"type"`
}

// StreamChunk is one network-delivered batch of annotation results. PageID is
// set by the server for multi-page batches; when absent the chunk belongs to
// the only page of a single-page batch. Transient, never persisted.
type StreamChunk struct {
	PageID      string      `json:"pageId,omitempty"`
	ChunkIndex  int         `json:"chunkIndex"`
	TotalChunks int         `json:"totalChunks"`
	Units       []ChunkUnit `json:"units"`
	IsComplete  bool        `json:"isComplete"`
	IsError     bool        `json:"isError"`
	Error       string      `json:"error,omitempty"`
}
