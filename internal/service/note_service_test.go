package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/hanzinote/internal/model"
	"github.com/xxxsen/hanzinote/internal/textproc"
)

type memStore struct {
	files map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{files: map[string][]byte{}}
}

func (s *memStore) Name() string { return "mem" }

func (s *memStore) Save(ctx context.Context, key string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.files[key] = data
	return nil
}

func (s *memStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.files[key]
	if !ok {
		return nil, fmt.Errorf("no such key:%s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	delete(s.files, key)
	return nil
}

func (s *memStore) URL(key string) string { return "" }

// scriptedExtractor answers one scripted result per call.
type scriptedExtractor struct {
	texts []string
	errs  []error
	calls int
}

func (e *scriptedExtractor) Name() string { return "scripted" }

func (e *scriptedExtractor) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	i := e.calls
	e.calls++
	if i >= len(e.texts) {
		return "", fmt.Errorf("unexpected extract call %d", i)
	}
	return e.texts[i], e.errs[i]
}

func TestDeriveTitle(t *testing.T) {
	withTitle := []*model.PageProcessingData{
		{TextSegments: []string{"正文第一句。"}},
		{DetectedTitles: []string{"第一课"}, TextSegments: []string{"第一课", "正文。"}},
	}
	require.Equal(t, "第一课", deriveTitle(withTitle))

	noTitle := []*model.PageProcessingData{
		{TextSegments: []string{"这是第一句正文内容。"}},
	}
	require.Equal(t, "这是第一句正文内容。", deriveTitle(noTitle))

	long := []*model.PageProcessingData{
		{TextSegments: []string{"这是一句特别特别特别特别特别特别特别特别特别长的开头句子"}},
	}
	require.Len(t, []rune(deriveTitle(long)), 24)

	require.Equal(t, "未命名笔记", deriveTitle(nil))
}

func TestPhotoKeyAndMime(t *testing.T) {
	key := photoKey("n1", "p1", "image/png")
	require.Equal(t, "notes/n1/p1.png", key)
	require.Equal(t, "image/png", mimeTypeOfKey(key))

	key = photoKey("n1", "p2", "")
	require.Equal(t, "notes/n1/p2.jpg", key)
	require.Equal(t, "image/jpeg", mimeTypeOfKey(key))

	require.Equal(t, "image/webp", mimeTypeOfKey("a.webp"))
	require.Equal(t, "image/heic", mimeTypeOfKey("a.heic"))
}

func TestCreateFromPhotosDiscardsSavedOnError(t *testing.T) {
	// When a later photo fails, photos already saved for earlier pages must
	// not linger: no rows exist yet, so no cleanup job would ever find them.
	store := newMemStore()
	extractor := &scriptedExtractor{
		texts: []string{"你好，世界。", ""},
		errs:  []error{nil, fmt.Errorf("ocr backend down")},
	}
	svc := NewNoteService(nil, nil, store, extractor,
		textproc.NewCleaner(), textproc.NewSplitter(textproc.DefaultSplitterOptions()), nil)

	_, err := svc.CreateFromPhotos(context.Background(), "user-1", &CreateNoteInput{
		Mode: model.ModeSegment,
		Photos: []PhotoInput{
			{Data: []byte("img1"), MimeType: "image/jpeg"},
			{Data: []byte("img2"), MimeType: "image/jpeg"},
		},
	})
	require.Error(t, err)
	require.Empty(t, store.files)
}

func TestNewIDs(t *testing.T) {
	require.Len(t, newID(), 32)
	require.Len(t, newShareToken(), 48)
	require.NotEqual(t, newID(), newID())
}
