package service

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/hanzinote/internal/model"
)

func processedPage(t *testing.T, seq int, pt *model.ProcessedText) model.Page {
	t.Helper()
	raw, err := json.Marshal(pt)
	require.NoError(t, err)
	return model.Page{ID: "p", Seq: seq, Processed: string(raw)}
}

func strptr(s string) *string { return &s }

func TestBuildMarkdownBilingual(t *testing.T) {
	pt := &model.ProcessedText{
		Units: []model.TextUnit{
			{OriginalText: "第一课", TranslatedText: strptr("Lesson One"), SegmentType: model.SegmentTypeTitle},
			{OriginalText: "你好。", TranslatedText: strptr("Hello."), Pinyin: strptr("nǐ hǎo"), SegmentType: model.SegmentTypeSentence},
		},
		StreamingStatus: model.StatusCompleted,
	}
	detail := &NoteDetail{
		Note:  &model.Note{Title: "我的笔记"},
		Pages: []model.Page{processedPage(t, 0, pt)},
	}
	md := buildMarkdown(detail)
	require.Contains(t, md, "# 我的笔记")
	require.Contains(t, md, "### 第一课")
	require.Contains(t, md, "你好。")
	require.Contains(t, md, "*nǐ hǎo*")
	require.Contains(t, md, "> Hello.")
	// Single page note gets no per-page heading.
	require.NotContains(t, md, "## Page")
}

func TestBuildMarkdownMultiPageAndPending(t *testing.T) {
	pt := &model.ProcessedText{
		Units: []model.TextUnit{
			{OriginalText: "正文。", SegmentType: model.SegmentTypeSentence},
		},
	}
	detail := &NoteDetail{
		Note: &model.Note{Title: "t"},
		Pages: []model.Page{
			processedPage(t, 0, pt),
			{ID: "p2", Seq: 1}, // still processing, no snapshot yet
		},
	}
	md := buildMarkdown(detail)
	require.Contains(t, md, "## Page 1")
	require.Contains(t, md, "## Page 2")
	require.Contains(t, md, "正文。")
	require.Contains(t, md, "_Processing…_")
}

func TestMarkdownRendersToHTML(t *testing.T) {
	svc := NewExportService(nil)
	markdown := buildMarkdown(&NoteDetail{
		Note: &model.Note{Title: "分享"},
		Pages: []model.Page{processedPage(t, 0, &model.ProcessedText{
			Units: []model.TextUnit{{OriginalText: "你好。", TranslatedText: strptr("Hello."), SegmentType: model.SegmentTypeSentence}},
		})},
	})
	var out bytes.Buffer
	require.NoError(t, svc.md.Convert([]byte(markdown), &out))
	html := out.String()
	require.Contains(t, html, "<h1")
	require.Contains(t, html, "你好。")
	require.Contains(t, html, "Hello.")
}
