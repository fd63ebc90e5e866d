package sexp

import "iter"

// Block scanning over raw KiCad text.
//
// These primitives locate parenthesized regions without building a parse
// tree. Depth is tracked by counting '(' and ')'; bytes inside double quoted
// strings (with backslash escapes) never affect depth. Every failure is soft:
// a missing or unterminated block is simply not reported, so truncated files
// still yield whatever complete blocks they contain.

// Span is a half-open byte range [Start, End) into a document.
// For a block, End is one past the matching ')'.
type Span struct {
	Start int
	End   int
}

// Whole returns the span covering all of text.
func Whole(text string) Span {
	return Span{Start: 0, End: len(text)}
}

// Len returns the number of bytes in the span
func (s Span) Len() int {
	return s.End - s.Start
}

// Text returns the slice of text covered by the span.
func (s Span) Text(text string) string {
	return text[s.Start:s.End]
}

// Contains reports whether other lies entirely inside s.
func (s Span) Contains(other Span) bool {
	return other.Start >= s.Start && other.End <= s.End
}

// Block is a located parenthesized region together with the head it matched.
type Block struct {
	Span
	Tag string
}

// SkipString returns the offset just past the quoted string that starts at
// text[i] (which must be '"'). The second result is false when the string is
// never closed, in which case the offset is len(text).
func SkipString(text string, i int) (int, bool) {
	for j := i + 1; j < len(text); j++ {
		switch text[j] {
		case '\\':
			j++
		case '"':
			return j + 1, true
		}
	}
	return len(text), false
}

// MatchClose returns the offset one past the ')' matching the '(' at text[i],
// looking no further than limit. The second result is false when depth never
// returns to zero before limit.
func MatchClose(text string, i, limit int) (int, bool) {
	if limit > len(text) {
		limit = len(text)
	}
	depth := 0
	for j := i; j < limit; j++ {
		switch text[j] {
		case '"':
			end, ok := SkipString(text, j)
			if !ok || end > limit {
				return limit, false
			}
			j = end - 1
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return j + 1, true
			}
		}
	}
	return limit, false
}

// isDelimiter reports whether c terminates a bare atom.
func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v', '(', ')', '"':
		return true
	}
	return false
}

// HeadAt returns the bare atom that follows the '(' at text[i], skipping
// leading whitespace. A quoted or missing head yields "".
func HeadAt(text string, i, limit int) string {
	if limit > len(text) {
		limit = len(text)
	}
	j := i + 1
	for j < limit && (text[j] == ' ' || text[j] == '\t' || text[j] == '\n' || text[j] == '\r') {
		j++
	}
	start := j
	for j < limit && !isDelimiter(text[j]) {
		j++
	}
	return text[start:j]
}

func matchTag(head string, tags []string) (string, bool) {
	if head == "" {
		return "", false
	}
	if len(tags) == 0 {
		return head, true
	}
	for _, tag := range tags {
		if head == tag {
			return tag, true
		}
	}
	return "", false
}

// FindBlock returns the first block at or after start whose head is tag.
// It fails when no such head exists or when that block is unterminated.
func FindBlock(text string, start int, tag string) (Span, bool) {
	for i := max(start, 0); i < len(text); i++ {
		switch text[i] {
		case '"':
			end, ok := SkipString(text, i)
			if !ok {
				return Span{}, false
			}
			i = end - 1
		case '(':
			if HeadAt(text, i, len(text)) != tag {
				continue
			}
			end, ok := MatchClose(text, i, len(text))
			if !ok {
				return Span{}, false
			}
			return Span{Start: i, End: end}, true
		}
	}
	return Span{}, false
}

// IterBlocks enumerates every complete block inside span whose head is one of
// tags, at any nesting depth, in document order. Matches do not overlap:
// scanning resumes after each reported block. An unterminated match is
// skipped and scanning continues inside it.
//
// The returned sequence re-scans on every range, so it can be iterated more
// than once.
func IterBlocks(text string, span Span, tags ...string) iter.Seq[Block] {
	return func(yield func(Block) bool) {
		end := min(span.End, len(text))
		for i := max(span.Start, 0); i < end; i++ {
			switch text[i] {
			case '"':
				next, ok := SkipString(text, i)
				if !ok || next > end {
					return
				}
				i = next - 1
			case '(':
				tag, ok := matchTag(HeadAt(text, i, end), tags)
				if !ok {
					continue
				}
				stop, ok := MatchClose(text, i, end)
				if !ok {
					continue
				}
				if !yield(Block{Span: Span{Start: i, End: stop}, Tag: tag}) {
					return
				}
				i = stop - 1
			}
		}
	}
}

// Children enumerates the direct child blocks of the block starting at
// span.Start. With no tags every child is reported. Iteration stops at the
// parent's closing ')' or at span.End, whichever comes first, so an
// unterminated parent still yields its complete children.
func Children(text string, span Span, tags ...string) iter.Seq[Block] {
	return func(yield func(Block) bool) {
		end := min(span.End, len(text))
		if span.Start < 0 || span.Start >= end || text[span.Start] != '(' {
			return
		}
		for i := span.Start + 1; i < end; i++ {
			switch text[i] {
			case '"':
				next, ok := SkipString(text, i)
				if !ok || next > end {
					return
				}
				i = next - 1
			case ')':
				return
			case '(':
				stop, ok := MatchClose(text, i, end)
				if !ok {
					return
				}
				if tag, ok := matchTag(HeadAt(text, i, end), tags); ok {
					if !yield(Block{Span: Span{Start: i, End: stop}, Tag: tag}) {
						return
					}
				}
				i = stop - 1
			}
		}
	}
}

// FindChild returns the first direct child of the block at span whose head
// is tag.
func FindChild(text string, span Span, tag string) (Span, bool) {
	for b := range Children(text, span, tag) {
		return b.Span, true
	}
	return Span{}, false
}

// FindTopLevel returns a block with head tag that is either the document
// root itself or a direct child of the root. The root may be unterminated.
func FindTopLevel(text string, tag string) (Span, bool) {
	root := -1
	for i := 0; i < len(text); i++ {
		if text[i] == '(' {
			root = i
			break
		}
		if text[i] == '"' {
			return Span{}, false
		}
	}
	if root < 0 {
		return Span{}, false
	}
	if HeadAt(text, root, len(text)) == tag {
		end, ok := MatchClose(text, root, len(text))
		if !ok {
			return Span{}, false
		}
		return Span{Start: root, End: end}, true
	}
	return FindChild(text, Span{Start: root, End: len(text)}, tag)
}
