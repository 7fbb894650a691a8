package ingestion

import (
	"strings"
	"testing"
)

func TestSplitterEmptyInput(t *testing.T) {
	s := NewSplitter(100, 20)
	if got := s.Split(""); got != nil {
		t.Fatalf("empty input: want nil, got %v", got)
	}
	if got := s.Split("   \n\t "); got != nil {
		t.Fatalf("whitespace input: want nil, got %v", got)
	}
}

func TestSplitterShortTextSingleSegment(t *testing.T) {
	s := NewSplitter(100, 20)
	got := s.Split("a short paragraph")
	if len(got) != 1 {
		t.Fatalf("segments: want=1 got=%d (%v)", len(got), got)
	}
	if got[0] != "a short paragraph" {
		t.Fatalf("segment: got=%q", got[0])
	}
}

func TestSplitterRespectsMaxLength(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("some sentence about the report. ")
	}
	s := NewSplitter(300, 50)

	segments := s.Split(b.String())
	if len(segments) < 2 {
		t.Fatalf("expected multiple segments, got %d", len(segments))
	}
	for i, seg := range segments {
		if n := len([]rune(seg)); n > 300 {
			t.Fatalf("segment %d length %d exceeds max 300", i, n)
		}
		if strings.TrimSpace(seg) == "" {
			t.Fatalf("segment %d is blank", i)
		}
	}
}

func TestSplitterPreservesOrderAndContent(t *testing.T) {
	words := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel"}
	text := strings.Join(words, " ")
	s := NewSplitter(20, 5)

	segments := s.Split(text)
	joined := strings.Join(segments, " ")

	// Every word must survive splitting, in document order.
	lastIdx := -1
	for _, w := range words {
		idx := strings.Index(joined, w)
		if idx < 0 {
			t.Fatalf("word %q missing from segments %v", w, segments)
		}
		if idx < lastIdx {
			t.Fatalf("word %q out of order in segments %v", w, segments)
		}
		lastIdx = idx
	}
}

func TestSplitterOverlapCarriesContext(t *testing.T) {
	var parts []string
	for i := 0; i < 40; i++ {
		parts = append(parts, "w"+strings.Repeat("x", 3))
	}
	text := strings.Join(parts, " ")
	s := NewSplitter(50, 20)

	segments := s.Split(text)
	if len(segments) < 2 {
		t.Fatalf("expected multiple segments, got %d", len(segments))
	}
	for i := 1; i < len(segments); i++ {
		prevTail := segments[i-1]
		if len(prevTail) > 20 {
			prevTail = prevTail[len(prevTail)-20:]
		}
		// The next segment must start inside the previous segment's tail.
		head := strings.Fields(segments[i])[0]
		if !strings.Contains(prevTail, head) {
			t.Fatalf("segment %d does not overlap previous: prev=%q next=%q", i, segments[i-1], segments[i])
		}
	}
}

func TestSplitterPrefersParagraphBoundaries(t *testing.T) {
	para1 := strings.Repeat("first paragraph text. ", 3)
	para2 := strings.Repeat("second paragraph text. ", 3)
	text := strings.TrimSpace(para1) + "\n\n" + strings.TrimSpace(para2)

	s := NewSplitter(80, 0)
	segments := s.Split(text)

	for i, seg := range segments {
		if strings.Contains(seg, "first") && strings.Contains(seg, "second") {
			t.Fatalf("segment %d crosses paragraph boundary: %q", i, seg)
		}
	}
}

func TestSplitterUnbrokenRunFallsBackToRunes(t *testing.T) {
	text := strings.Repeat("a", 950)
	s := NewSplitter(300, 0)

	segments := s.Split(text)
	if len(segments) != 4 {
		t.Fatalf("segments: want=4 got=%d", len(segments))
	}
	total := 0
	for i, seg := range segments {
		if n := len(seg); n > 300 {
			t.Fatalf("segment %d length %d exceeds max", i, n)
		}
		total += len(seg)
	}
	if total != 950 {
		t.Fatalf("rune coverage: want=950 got=%d", total)
	}
}
