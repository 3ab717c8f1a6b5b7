package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hanzinote/internal/filestore"
	"github.com/xxxsen/hanzinote/internal/model"
	"github.com/xxxsen/hanzinote/internal/ocr"
	appErr "github.com/xxxsen/hanzinote/internal/pkg/errors"
	"github.com/xxxsen/hanzinote/internal/pipeline"
	"github.com/xxxsen/hanzinote/internal/repo"
	"github.com/xxxsen/hanzinote/internal/textproc"
)

const (
	maxPhotosPerNote  = 20
	defaultSourceLang = "zh-CN"
	defaultTargetLang = "ko"
)

type NoteService struct {
	notes     *repo.NoteRepo
	pages     *repo.PageRepo
	store     filestore.Store
	extractor ocr.Extractor
	cleaner   *textproc.Cleaner
	splitter  *textproc.Splitter
	runner    *pipeline.Runner
}

func NewNoteService(notes *repo.NoteRepo, pages *repo.PageRepo, store filestore.Store,
	extractor ocr.Extractor, cleaner *textproc.Cleaner, splitter *textproc.Splitter,
	runner *pipeline.Runner) *NoteService {
	return &NoteService{
		notes:     notes,
		pages:     pages,
		store:     store,
		extractor: extractor,
		cleaner:   cleaner,
		splitter:  splitter,
		runner:    runner,
	}
}

type PhotoInput struct {
	Data     []byte
	MimeType string
}

type CreateNoteInput struct {
	Title          string
	Mode           model.ProcessingMode
	SourceLanguage string
	TargetLanguage string
	Photos         []PhotoInput
}

type NoteDetail struct {
	Note  *model.Note  `json:"note"`
	Pages []model.Page `json:"pages"`
}

type PageProgress struct {
	PageID         string  `json:"page_id"`
	StreamStatus   string  `json:"stream_status"`
	Progress       float64 `json:"progress"`
	CompletedUnits int     `json:"completed_units"`
}

// CreateFromPhotos runs the synchronous half of the pipeline (OCR, clean,
// split, persist) for every photo, then hands the batch to the streaming
// pipeline in the background. The note and its pages are visible to the
// caller immediately with stream_status preparing.
func (s *NoteService) CreateFromPhotos(ctx context.Context, userID string, input *CreateNoteInput) (*NoteDetail, error) {
	if len(input.Photos) == 0 {
		return nil, fmt.Errorf("%w: at least one photo is required", appErr.ErrInvalid)
	}
	if len(input.Photos) > maxPhotosPerNote {
		return nil, fmt.Errorf("%w: at most %d photos per note", appErr.ErrInvalid, maxPhotosPerNote)
	}
	mode := input.Mode
	if mode == "" {
		mode = model.ModeSegment
	}
	if mode != model.ModeSegment && mode != model.ModeParagraph {
		return nil, fmt.Errorf("%w: unknown processing mode %s", appErr.ErrInvalid, mode)
	}
	sourceLang := input.SourceLanguage
	if sourceLang == "" {
		sourceLang = defaultSourceLang
	}
	targetLang := input.TargetLanguage
	if targetLang == "" {
		targetLang = defaultTargetLang
	}

	noteID := newID()
	now := time.Now().UnixMilli()
	var (
		pages      []model.Page
		processing []*model.PageProcessingData
		savedKeys  []string
	)
	for i, photo := range input.Photos {
		pageID := newID()
		data, err := s.preparePage(ctx, pageID, photo, mode, sourceLang, targetLang)
		if err != nil {
			s.discardPhotos(ctx, savedKeys)
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		key := photoKey(noteID, pageID, photo.MimeType)
		if err := s.store.Save(ctx, key, bytes.NewReader(photo.Data), int64(len(photo.Data))); err != nil {
			s.discardPhotos(ctx, savedKeys)
			return nil, fmt.Errorf("save photo: %w", err)
		}
		savedKeys = append(savedKeys, key)
		rawProcessing, err := json.Marshal(data)
		if err != nil {
			s.discardPhotos(ctx, savedKeys)
			return nil, err
		}
		pages = append(pages, model.Page{
			ID:           pageID,
			NoteID:       noteID,
			UserID:       userID,
			Seq:          i,
			PhotoKey:     key,
			Processing:   string(rawProcessing),
			StreamStatus: string(model.StatusPreparing),
			State:        model.NoteStateNormal,
			Ctime:        now,
			Mtime:        now,
		})
		processing = append(processing, data)
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = deriveTitle(processing)
	}
	note := &model.Note{
		ID:     noteID,
		UserID: userID,
		Title:  title,
		State:  model.NoteStateNormal,
		Ctime:  now,
		Mtime:  now,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		s.discardPhotos(ctx, savedKeys)
		return nil, err
	}
	for i := range pages {
		if err := s.pages.Create(ctx, &pages[i]); err != nil {
			s.discardPhotos(ctx, savedKeys)
			now := time.Now().UnixMilli()
			if derr := s.notes.Delete(ctx, userID, noteID, now); derr != nil {
				logutil.GetLogger(ctx).Warn("rollback note failed", zap.String("note_id", noteID), zap.Error(derr))
			}
			if derr := s.pages.DeleteByNote(ctx, noteID, now); derr != nil {
				logutil.GetLogger(ctx).Warn("rollback pages failed", zap.String("note_id", noteID), zap.Error(derr))
			}
			return nil, err
		}
	}

	s.dispatch(ctx, processing)
	return &NoteDetail{Note: note, Pages: pages}, nil
}

// discardPhotos removes photos saved for a note that never came into
// existence; without rows the cleanup job would never find them.
func (s *NoteService) discardPhotos(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			logutil.GetLogger(ctx).Warn("remove orphaned photo failed",
				zap.String("photo_key", key), zap.Error(err))
		}
	}
}

// preparePage is the synchronous OCR+clean+split stage for one photo.
func (s *NoteService) preparePage(ctx context.Context, pageID string, photo PhotoInput,
	mode model.ProcessingMode, sourceLang, targetLang string) (*model.PageProcessingData, error) {
	raw, err := s.extractor.ExtractText(ctx, photo.Data, photo.MimeType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrExtractorOffline, err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, appErr.ErrNoTextFound
	}
	cleaned := s.cleaner.Clean(raw)
	if strings.TrimSpace(cleaned) == "" {
		return nil, appErr.ErrNoTextFound
	}
	if !textproc.HasChinese(cleaned) {
		return nil, appErr.ErrNoChineseText
	}
	res := s.splitter.Split(cleaned, mode)
	return &model.PageProcessingData{
		PageID:         pageID,
		TextSegments:   res.Segments,
		Mode:           mode,
		SourceLanguage: sourceLang,
		TargetLanguage: targetLang,
		DetectedTitles: res.Titles,
		OriginalText:   raw,
		CleanedText:    cleaned,
		ReorderedText:  res.Reordered,
	}, nil
}

// dispatch hands the batch to the streaming pipeline on a fresh context so the
// stream outlives the HTTP request that created it.
func (s *NoteService) dispatch(ctx context.Context, batch []*model.PageProcessingData) {
	logger := logutil.GetLogger(ctx)
	go func() {
		if err := s.runner.Run(context.Background(), batch); err != nil {
			logger.Warn("annotation pipeline stopped early", zap.Error(err))
		}
	}()
}

func (s *NoteService) ListNotes(ctx context.Context, userID string, limit, offset uint) ([]model.Note, int, error) {
	notes, err := s.notes.List(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.notes.Count(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return notes, total, nil
}

func (s *NoteService) GetNote(ctx context.Context, userID, noteID string) (*NoteDetail, error) {
	note, err := s.notes.GetByID(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}
	pages, err := s.pages.ListByNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	return &NoteDetail{Note: note, Pages: pages}, nil
}

func (s *NoteService) GetPage(ctx context.Context, userID, pageID string) (*model.Page, error) {
	return s.pages.GetByID(ctx, userID, pageID)
}

// Progress reports the polling columns of every page of a note.
func (s *NoteService) Progress(ctx context.Context, userID, noteID string) ([]PageProgress, error) {
	if _, err := s.notes.GetByID(ctx, userID, noteID); err != nil {
		return nil, err
	}
	pages, err := s.pages.ListByNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	out := make([]PageProgress, 0, len(pages))
	for _, p := range pages {
		out = append(out, PageProgress{
			PageID:         p.ID,
			StreamStatus:   p.StreamStatus,
			Progress:       p.Progress,
			CompletedUnits: p.CompletedUnits,
		})
	}
	return out, nil
}

func (s *NoteService) UpdateTitle(ctx context.Context, userID, noteID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title is required", appErr.ErrInvalid)
	}
	return s.notes.UpdateTitle(ctx, userID, noteID, title, time.Now().UnixMilli())
}

func (s *NoteService) DeleteNote(ctx context.Context, userID, noteID string) error {
	now := time.Now().UnixMilli()
	if err := s.notes.Delete(ctx, userID, noteID, now); err != nil {
		return err
	}
	return s.pages.DeleteByNote(ctx, noteID, now)
}

// RetryPage re-dispatches a failed page from its immutable processing record.
// OCR and splitting are not re-run.
func (s *NoteService) RetryPage(ctx context.Context, userID, pageID string) error {
	page, err := s.pages.GetByID(ctx, userID, pageID)
	if err != nil {
		return err
	}
	if page.StreamStatus != string(model.StatusFailed) {
		return appErr.ErrPageNotRetryable
	}
	if strings.TrimSpace(page.Processing) == "" {
		return appErr.ErrPageNotRetryable
	}
	var data model.PageProcessingData
	if err := json.Unmarshal([]byte(page.Processing), &data); err != nil {
		return fmt.Errorf("%w: corrupt processing record", appErr.ErrPageNotRetryable)
	}
	if err := s.pages.Update(ctx, pageID, map[string]interface{}{
		"stream_status":   string(model.StatusPreparing),
		"progress":        0.0,
		"completed_units": 0,
		"processed":       "",
		"completed_at":    0,
		"mtime":           time.Now().UnixMilli(),
	}); err != nil {
		return err
	}
	s.dispatch(ctx, []*model.PageProcessingData{&data})
	return nil
}

func (s *NoteService) OpenPhoto(ctx context.Context, userID, pageID string) (io.ReadCloser, string, error) {
	page, err := s.pages.GetByID(ctx, userID, pageID)
	if err != nil {
		return nil, "", err
	}
	rc, err := s.store.Open(ctx, page.PhotoKey)
	if err != nil {
		return nil, "", err
	}
	return rc, mimeTypeOfKey(page.PhotoKey), nil
}

// FailStalePages flips pages stuck in a non-terminal status to failed. Run
// from the janitor job; a crashed server process leaves such pages behind.
func (s *NoteService) FailStalePages(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := s.pages.ListStale(ctx, olderThan, 200)
	if err != nil {
		return 0, err
	}
	now := time.Now().UnixMilli()
	count := 0
	for _, page := range stale {
		if err := s.pages.Update(ctx, page.ID, map[string]interface{}{
			"stream_status": string(model.StatusFailed),
			"mtime":         now,
		}); err != nil {
			logutil.GetLogger(ctx).Warn("mark stale page failed",
				zap.String("page_id", page.ID), zap.Error(err))
			continue
		}
		count++
	}
	return count, nil
}

func (s *NoteService) CreateShare(ctx context.Context, userID, noteID string) (string, error) {
	token := newShareToken()
	if err := s.notes.UpdateShareToken(ctx, userID, noteID, token, time.Now().UnixMilli()); err != nil {
		return "", err
	}
	return token, nil
}

func (s *NoteService) RevokeShare(ctx context.Context, userID, noteID string) error {
	return s.notes.UpdateShareToken(ctx, userID, noteID, "", time.Now().UnixMilli())
}

// GetShared resolves a public share token. No user scoping; the token is the
// capability.
func (s *NoteService) GetShared(ctx context.Context, token string) (*NoteDetail, error) {
	note, err := s.notes.GetByShareToken(ctx, token)
	if err != nil {
		return nil, err
	}
	pages, err := s.pages.ListByNote(ctx, note.ID)
	if err != nil {
		return nil, err
	}
	return &NoteDetail{Note: note, Pages: pages}, nil
}

func deriveTitle(batch []*model.PageProcessingData) string {
	for _, data := range batch {
		if len(data.DetectedTitles) > 0 {
			return data.DetectedTitles[0]
		}
	}
	for _, data := range batch {
		if len(data.TextSegments) > 0 {
			title := data.TextSegments[0]
			runes := []rune(title)
			if len(runes) > 24 {
				title = string(runes[:24])
			}
			return title
		}
	}
	return "未命名笔记"
}

func photoKey(noteID, pageID, mimeType string) string {
	ext := "jpg"
	switch mimeType {
	case "image/png":
		ext = "png"
	case "image/webp":
		ext = "webp"
	case "image/heic":
		ext = "heic"
	}
	return fmt.Sprintf("notes/%s/%s.%s", noteID, pageID, ext)
}

func mimeTypeOfKey(key string) string {
	switch {
	case strings.HasSuffix(key, ".png"):
		return "image/png"
	case strings.HasSuffix(key, ".webp"):
		return "image/webp"
	case strings.HasSuffix(key, ".heic"):
		return "image/heic"
	default:
		return "image/jpeg"
	}
}
