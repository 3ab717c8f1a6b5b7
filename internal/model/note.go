package model

const (
	NoteStateNormal  = 1
	NoteStateDeleted = 2
)

type Note struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Title      string `json:"title"`
	ShareToken string `json:"share_token,omitempty"`
	State      int    `json:"state"`
	Ctime      int64  `json:"ctime"`
	Mtime      int64  `json:"mtime"`
}

// Page is the stored record of one photographed page. Processing holds the
// serialized PageProcessingData, Processed the serialized ProcessedText; the
// progress columns are duplicated out of Processed so the app can poll cheaply.
type Page struct {
	ID             string  `json:"id"`
	NoteID         string  `json:"note_id"`
	UserID         string  `json:"user_id"`
	Seq            int     `json:"seq"`
	PhotoKey       string  `json:"photo_key"`
	Processing     string  `json:"processing"`
	Processed      string  `json:"processed"`
	StreamStatus   string  `json:"stream_status"`
	Progress       float64 `json:"progress"`
	CompletedUnits int     `json:"completed_units"`
	CompletedAt    int64   `json:"completed_at"`
	State          int     `json:"state"`
	Ctime          int64   `json:"ctime"`
	Mtime          int64   `json:"mtime"`
}
