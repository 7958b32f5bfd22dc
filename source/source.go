// Package source holds immutable UTF-8 source blobs and the span
// arithmetic used to locate diagnostics and debug info within them.
package source

import "fmt"

// ID indexes a Source within a Sources collection.
type ID uint32

// Span is a half-open byte range [Start, End) into a specific Source.
type Span struct {
	Source ID
	Start  uint32
	End    uint32
}

// NewSpan builds a Span, panicking if the range is inverted since that
// always indicates a compiler bug rather than user input.
func NewSpan(src ID, start, end uint32) Span {
	if end < start {
		panic("source: span end before start")
	}
	return Span{Source: src, Start: start, End: end}
}

// Join returns the smallest span covering both a and b. Both must refer
// to the same Source.
func (a Span) Join(b Span) Span {
	if a.Source != b.Source {
		panic("source: cannot join spans from different sources")
	}
	start, end := a.Start, a.End
	if b.Start < start {
		start = b.Start
	}
	if b.End > end {
		end = b.End
	}
	return Span{Source: a.Source, Start: start, End: end}
}

func (s Span) String() string {
	return fmt.Sprintf("%d..%d", s.Start, s.End)
}

// Source is an immutable UTF-8 blob with an optional origin path.
type Source struct {
	id      ID
	name    string // path, or a synthetic name for in-memory sources
	content string
	lines   []uint32 // byte offset of the start of each line, lazily computed
}

// Memory builds a Source from an in-memory string, the Rune analogue of
// `Source::memory(code)`.
func Memory(name, code string) *Source {
	return &Source{name: name, content: code}
}

// ID returns the source's id once it has been inserted into a Sources
// collection; zero before insertion.
func (s *Source) ID() ID { return s.id }

// Name returns the source's path or synthetic name.
func (s *Source) Name() string { return s.name }

// Content returns the full source text.
func (s *Source) Content() string { return s.content }

// Slice returns the substring covered by span, which must refer to this
// source.
func (s *Source) Slice(span Span) string {
	if int(span.End) > len(s.content) {
		return s.content[span.Start:]
	}
	return s.content[span.Start:span.End]
}

// ensureLines lazily computes line-start offsets for Position lookups.
func (s *Source) ensureLines() {
	if s.lines != nil {
		return
	}
	lines := []uint32{0}
	for i := 0; i < len(s.content); i++ {
		if s.content[i] == '\n' {
			lines = append(lines, uint32(i+1))
		}
	}
	s.lines = lines
}

// Position converts a byte offset into a 1-based (line, column) pair for
// diagnostics rendering.
func (s *Source) Position(offset uint32) (line, column int) {
	s.ensureLines()
	// binary search for the last line start <= offset
	lo, hi := 0, len(s.lines)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if s.lines[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1, int(offset-s.lines[lo]) + 1
}

// Sources owns a set of Source blobs, indexed by ID, for the duration of
// a compilation. Debug info in a sealed Unit refers back to these by ID.
type Sources struct {
	all []*Source
}

// NewSources returns an empty Sources collection.
func NewSources() *Sources { return &Sources{} }

// Insert adds a Source, assigning and returning its ID.
func (s *Sources) Insert(src *Source) ID {
	id := ID(len(s.all) + 1) // 1-based so the zero ID reads as "unset"
	src.id = id
	s.all = append(s.all, src)
	return id
}

// Get resolves an ID back to its Source.
func (s *Sources) Get(id ID) *Source {
	if id == 0 || int(id) > len(s.all) {
		return nil
	}
	return s.all[id-1]
}
