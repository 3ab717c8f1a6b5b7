package textproc

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

var (
	reDigitsOnly = regexp.MustCompile(`^\d+$`)
	// Standalone page markers: "12", "- 12 -", "第3页", "Page 12", "3/120".
	rePageNumber = regexp.MustCompile(`^[-–—·.\s]*(第\s*\d+\s*[页頁]|[Pp]age\s*\d+|\d+\s*/\s*\d+|\d+)[-–—·.\s]*$`)
	reCopyright  = regexp.MustCompile(`(?i)(copyright|all rights reserved|版权所有|出版社|印刷|发行|定价|isbn)`)
	rePunctOnly  = regexp.MustCompile(`^[\p{P}\p{S}\s]+$`)
	// Digits mixed with separators only: times, ratios, dates.
	reDigitSep = regexp.MustCompile(`^[\d\s:：/\-.~～年月日时時分秒%]+$`)
	// One whitespace-delimited token of a pinyin line: Latin letters plus tone
	// diacritics, optionally a trailing tone number.
	rePinyinToken = regexp.MustCompile(`^[a-zA-ZüÜāáǎàēéěèīíǐìōóǒòūúǔùǖǘǚǜĀÁǍÀĒÉĚÈĪÍǏÌŌÓǑÒŪÚǓÙǕǗǙǛńňǹ'’·-]+[0-5]?[,，.。!！?？]?$`)
)

const shortMixedLineMax = 12

// Cleaner strips OCR noise from raw extracted text line by line. Cleaning is a
// pure function of the input, so results are memoized the same way the service
// layer caches model output.
type Cleaner struct {
	cache *expirable.LRU[string, string]
}

func NewCleaner() *Cleaner {
	return &Cleaner{
		cache: expirable.NewLRU[string, string](4096, nil, 2*time.Hour),
	}
}

func (c *Cleaner) Clean(raw string) string {
	if raw == "" {
		return ""
	}
	key := cleanCacheKey(raw)
	if cached, ok := c.cache.Get(key); ok {
		return cached
	}
	out := cleanText(raw)
	c.cache.Add(key, out)
	return out
}

func cleanText(raw string) string {
	lines := strings.Split(raw, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || dropLine(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func dropLine(line string) bool {
	switch {
	case isPinyinLine(line):
		return true
	case reDigitsOnly.MatchString(line):
		return true
	case rePageNumber.MatchString(line):
		return true
	case strings.ContainsAny(line, "©®™"):
		return true
	case reCopyright.MatchString(line):
		return true
	case rePunctOnly.MatchString(line):
		return true
	case hasDigit(line) && reDigitSep.MatchString(line):
		return true
	case isNonChineseLine(line):
		return true
	case isMeaninglessMixed(line):
		return true
	}
	return false
}

// isPinyinLine reports whether every token of a CJK-free line looks like a
// pinyin syllable.
func isPinyinLine(line string) bool {
	if HasChinese(line) {
		return false
	}
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return false
	}
	for _, tok := range tokens {
		if !rePinyinToken.MatchString(tok) {
			return false
		}
	}
	return true
}

// isNonChineseLine drops lines carrying Latin/Hangul/Kana but not a single
// ideograph; they are captions, romanization or OCR bleed from facing pages.
func isNonChineseLine(line string) bool {
	if HasChinese(line) {
		return false
	}
	return hasLatin(line) || hasOtherScript(line)
}

// isMeaninglessMixed flags short CJK+Latin+digit mixes and lines whose CJK
// count is far below the Latin count. Both shapes are OCR garbage in practice.
func isMeaninglessMixed(line string) bool {
	han := countHan(line)
	if han == 0 {
		return false
	}
	if runeLen(line) <= shortMixedLineMax && hasLatin(line) && hasDigit(line) {
		return true
	}
	return han*3 < countLatin(line)
}

func cleanCacheKey(raw string) string {
	hash := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(hash[:])
}
