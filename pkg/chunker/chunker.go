package chunker

import (
	"regexp"
	"strings"
)

type Config struct {
	MaxChunkSize int
	OverlapSize  int
	Separators   []string // coarsest to finest; "" means a raw character split
}

type Chunker struct {
	config     Config
	separators [][]rune
}

func NewWithConfig(config Config) *Chunker {
	if config.MaxChunkSize == 0 {
		config.MaxChunkSize = 1000
	}
	if config.OverlapSize == 0 {
		config.OverlapSize = 200
	}
	if len(config.Separators) == 0 {
		config.Separators = []string{"\n\n", "\n", ". ", " ", ""}
	}

	separators := make([][]rune, 0, len(config.Separators))
	for _, sep := range config.Separators {
		separators = append(separators, []rune(sep))
	}

	return &Chunker{
		config:     config,
		separators: separators,
	}
}

func New() *Chunker {
	return NewWithConfig(Config{})
}

// Chunk splits text into ordered chunks of at most MaxChunkSize runes.
// Each chunk after the first starts OverlapSize runes before the previous
// chunk's end. The same text and config always produce the same sequence.
func (c *Chunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= c.config.MaxChunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + c.config.MaxChunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		split := c.splitPoint(runes, start, end)
		chunks = append(chunks, string(runes[start:split]))

		next := split - c.config.OverlapSize
		if next <= start {
			// a split this close to the chunk start leaves no room for
			// overlap; continue without one rather than stall
			next = split
		}
		start = next
	}

	return chunks
}

// splitPoint searches backward from end for the latest occurrence of each
// separator in priority order. If no separator occurs inside the window,
// the chunk is cut at the raw rune boundary.
func (c *Chunker) splitPoint(runes []rune, start, end int) int {
	for _, sep := range c.separators {
		if len(sep) == 0 {
			break
		}
		for i := end; i-len(sep) > start; i-- {
			if runesEqual(runes[i-len(sep):i], sep) {
				return i
			}
		}
	}
	return end
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var (
	spaceRuns   = regexp.MustCompile(`[ \t]+`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
)

// Clean normalizes whitespace in extracted document text before chunking.
// Runs of spaces collapse to one space and runs of blank lines to a single
// paragraph break, so the separator hierarchy stays meaningful.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = spaceRuns.ReplaceAllString(text, " ")
	text = newlineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
