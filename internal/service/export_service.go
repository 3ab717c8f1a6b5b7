package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	rendererhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/xxxsen/hanzinote/internal/model"
)

// ExportService renders a note as bilingual markdown and, for the share page,
// as HTML.
type ExportService struct {
	notes *NoteService
	md    goldmark.Markdown
}

func NewExportService(notes *NoteService) *ExportService {
	return &ExportService{
		notes: notes,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(rendererhtml.WithHardWraps()),
		),
	}
}

func (s *ExportService) ExportMarkdown(ctx context.Context, userID, noteID string) (string, error) {
	detail, err := s.notes.GetNote(ctx, userID, noteID)
	if err != nil {
		return "", err
	}
	return buildMarkdown(detail), nil
}

// RenderShared renders the public share page body for a share token.
func (s *ExportService) RenderShared(ctx context.Context, token string) (string, string, error) {
	detail, err := s.notes.GetShared(ctx, token)
	if err != nil {
		return "", "", err
	}
	markdown := buildMarkdown(detail)
	var out bytes.Buffer
	if err := s.md.Convert([]byte(markdown), &out); err != nil {
		return "", "", err
	}
	return detail.Note.Title, out.String(), nil
}

func buildMarkdown(detail *NoteDetail) string {
	var b strings.Builder
	title := strings.TrimSpace(detail.Note.Title)
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	for _, page := range detail.Pages {
		if len(detail.Pages) > 1 {
			fmt.Fprintf(&b, "## Page %d\n\n", page.Seq+1)
		}
		writePageMarkdown(&b, &page)
	}
	return b.String()
}

func writePageMarkdown(b *strings.Builder, page *model.Page) {
	if strings.TrimSpace(page.Processed) == "" {
		b.WriteString("_Processing…_\n\n")
		return
	}
	var pt model.ProcessedText
	if err := json.Unmarshal([]byte(page.Processed), &pt); err != nil {
		b.WriteString("_Unavailable_\n\n")
		return
	}
	for _, unit := range pt.Units {
		if unit.SegmentType == model.SegmentTypeTitle {
			fmt.Fprintf(b, "### %s\n\n", unit.OriginalText)
			if unit.TranslatedText != nil {
				fmt.Fprintf(b, "_%s_\n\n", *unit.TranslatedText)
			}
			continue
		}
		fmt.Fprintf(b, "%s\n", unit.OriginalText)
		if unit.Pinyin != nil && *unit.Pinyin != "" {
			fmt.Fprintf(b, "*%s*\n", *unit.Pinyin)
		}
		if unit.TranslatedText != nil {
			fmt.Fprintf(b, "> %s\n", *unit.TranslatedText)
		}
		b.WriteString("\n")
	}
}
