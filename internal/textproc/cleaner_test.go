package textproc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanDropsNoiseLines(t *testing.T) {
	c := NewCleaner()
	raw := "你好\nNǐ hǎo\n12\n世界"
	require.Equal(t, "你好\n世界", c.Clean(raw))
}

func TestCleanIdempotent(t *testing.T) {
	c := NewCleaner()
	raw := "  第一课  \n\nHello World\n你好，世界。\n- 3 -\n版权所有 © 2020"
	once := c.Clean(raw)
	require.Equal(t, once, c.Clean(once))
}

func TestCleanPageMarkers(t *testing.T) {
	c := NewCleaner()
	cases := []string{"12", "- 12 -", "第3页", "Page 12", "3/120"}
	for _, line := range cases {
		require.Empty(t, c.Clean(line), "line %q should be dropped", line)
	}
}

func TestCleanKeepsChineseWithInlineDigits(t *testing.T) {
	c := NewCleaner()
	// A real sentence mentioning a number is content, not a page marker.
	require.Equal(t, "我今年十八岁了这是真的", c.Clean("我今年十八岁了这是真的"))
}

func TestCleanDropsPinyinLines(t *testing.T) {
	c := NewCleaner()
	require.Empty(t, c.Clean("wǒ ài běi jīng"))
	require.Empty(t, c.Clean("ni3 hao3 shi4 jie4"))
}

func TestCleanDropsNonChineseLines(t *testing.T) {
	c := NewCleaner()
	raw := "我的朋友\nMy friend\n안녕하세요\nこんにちは"
	require.Equal(t, "我的朋友", c.Clean(raw))
}

func TestCleanDropsCopyrightAndPunct(t *testing.T) {
	c := NewCleaner()
	require.Empty(t, c.Clean("All Rights Reserved"))
	require.Empty(t, c.Clean("人民教育出版社"))
	require.Empty(t, c.Clean("****----****"))
	require.Empty(t, c.Clean("2024年1月1日"))
}

func TestCleanDropsShortMixedGarbage(t *testing.T) {
	c := NewCleaner()
	require.Empty(t, c.Clean("第3a页x1"))
	// Long mixed lines with real Chinese content survive.
	kept := "这句话提到了HSK考试并且内容很长所以保留"
	require.Equal(t, kept, c.Clean(kept))
}

func TestCleanEmpty(t *testing.T) {
	c := NewCleaner()
	require.Empty(t, c.Clean(""))
	require.Empty(t, c.Clean("   \n\n  "))
}

func TestCleanMemoized(t *testing.T) {
	c := NewCleaner()
	raw := "你好\n12\n世界"
	first := c.Clean(raw)
	second := c.Clean(raw)
	require.Equal(t, first, second)
	require.Equal(t, 1, c.cache.Len())
}
