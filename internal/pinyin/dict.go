package pinyin

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// Dict is a character-level pinyin table used only when the remote annotation
// service is down; it never sits on the hot path.
type Dict struct {
	entries map[rune]string
}

func NewDict(entries map[rune]string) *Dict {
	if entries == nil {
		entries = map[rune]string{}
	}
	return &Dict{entries: entries}
}

// LoadFile reads a dictionary of lines "字 zì". Blank lines and lines starting
// with '#' are skipped. An empty path yields an empty dictionary.
func LoadFile(path string) (*Dict, error) {
	if strings.TrimSpace(path) == "" {
		return NewDict(nil), nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pinyin dict: %w", err)
	}
	defer file.Close()

	entries := map[rune]string{}
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		runes := []rune(fields[0])
		if len(runes) != 1 {
			continue
		}
		entries[runes[0]] = fields[1]
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read pinyin dict: %w", err)
	}
	return NewDict(entries), nil
}

// Lookup romanizes the ideographs of text. Characters missing from the table
// are skipped; ok is false when nothing at all could be romanized.
func (d *Dict) Lookup(text string) (string, bool) {
	var parts []string
	for _, r := range text {
		if !unicode.Is(unicode.Han, r) {
			continue
		}
		if py, ok := d.entries[r]; ok {
			parts = append(parts, py)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, " "), true
}

func (d *Dict) Size() int {
	return len(d.entries)
}
