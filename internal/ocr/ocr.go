package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable means the extractor has no usable backend (missing key,
// unreachable service). "No text in the image" is not an error: extractors
// return an empty string for that.
var ErrUnavailable = errors.New("ocr backend unavailable")

// Extractor is the text-extraction oracle. The pipeline never looks inside:
// it gets back raw text or an empty string.
type Extractor interface {
	Name() string
	ExtractText(ctx context.Context, image []byte, mimeType string) (string, error)
}

type Factory func(args interface{}) (Extractor, error)

var registry = map[string]Factory{}

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewExtractor(name string, args interface{}) (Extractor, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ocr.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ocr provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ocr provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ocr provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ocr provider config: %w", err)
	}
	return nil
}
