package ocr

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const geminiExtractPrompt = `Extract all printed text from this image exactly as it appears, line by line, top to bottom.
- Preserve the original line breaks.
- Do not translate, annotate or describe anything.
- Output ONLY the extracted text; output nothing if the image has no text.`

type geminiConfig struct {
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
}

type geminiExtractor struct {
	apiKey string
	model  string
}

func (p *geminiExtractor) Name() string {
	return "gemini"
}

func (p *geminiExtractor) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	if p.apiKey == "" {
		return "", ErrUnavailable
	}
	if len(image) == 0 {
		return "", nil
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", err
	}
	resp, err := client.Models.GenerateContent(
		ctx,
		p.model,
		[]*genai.Content{{Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
			{Text: geminiExtractPrompt},
		}}},
		nil,
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

func createGeminiFactory(args interface{}) (Extractor, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("ocr model is required for gemini")
	}
	return &geminiExtractor{
		apiKey: strings.TrimSpace(cfg.APIKey),
		model:  strings.TrimSpace(cfg.Model),
	}, nil
}

func init() {
	Register("gemini", createGeminiFactory)
}
