package ingestion

import "strings"

// Splitter cuts text into bounded, overlapping segments. It prefers the
// largest boundary that keeps a segment under the size limit: paragraph, then
// line, then sentence, then word, then rune.
type Splitter struct {
	ChunkSize int // max segment length in runes
	Overlap   int // runes carried over between consecutive segments
}

var separators = []string{"\n\n", "\n", ". ", " ", ""}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	return &Splitter{ChunkSize: chunkSize, Overlap: overlap}
}

func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return s.split(text, separators)
}

func (s *Splitter) split(text string, seps []string) []string {
	sep := ""
	rest := []string{}
	for i, cand := range seps {
		if cand == "" {
			sep = ""
			break
		}
		if strings.Contains(text, cand) {
			sep = cand
			rest = seps[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		pieces = splitRunes(text, s.ChunkSize)
	} else {
		pieces = strings.SplitAfter(text, sep)
	}

	var out []string
	var good []string
	for _, piece := range pieces {
		if runeLen(piece) <= s.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			out = append(out, splitRunes(piece, s.ChunkSize)...)
		} else {
			out = append(out, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		out = append(out, s.merge(good)...)
	}
	return out
}

// merge greedily packs pieces into chunks up to ChunkSize, carrying the last
// pieces totalling at most Overlap runes into the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var out []string
	var current []string
	total := 0

	flush := func() {
		joined := strings.TrimSpace(strings.Join(current, ""))
		if joined != "" {
			out = append(out, joined)
		}
	}

	for _, p := range pieces {
		l := runeLen(p)
		if total+l > s.ChunkSize && len(current) > 0 {
			flush()
			for len(current) > 0 && (total > s.Overlap || total+l > s.ChunkSize) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += l
	}
	if len(current) > 0 {
		flush()
	}
	return out
}

func splitRunes(text string, size int) []string {
	r := []rune(text)
	out := make([]string, 0, len(r)/size+1)
	for start := 0; start < len(r); start += size {
		end := start + size
		if end > len(r) {
			end = len(r)
		}
		p := strings.TrimSpace(string(r[start:end]))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runeLen(s string) int { return len([]rune(s)) }
