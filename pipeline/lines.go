package pipeline

import (
	"bufio"
	"io"
	"iter"
)

// Line is one input line, identified by its zero-based position in the
// stream. Bytes is nil and Err is non-nil when the underlying read
// itself failed; that line is never emitted or checked against any
// container.
type Line struct {
	Index int
	Bytes []byte
	Err   error
}

// lineReader splits a byte stream into lines on '\n' without stripping
// a preceding '\r', and without validating UTF-8 — any byte sequence is
// a valid line.
type lineReader struct {
	r *bufio.Reader
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReader(r)}
}

// Iter yields every line in order. A read error is reported on the Line
// for that index and does not stop iteration; reading resumes on the
// next call. EOF ends iteration, first yielding a final unterminated
// line if one was pending.
func (lr *lineReader) Iter() iter.Seq[Line] {
	return func(yield func(Line) bool) {
		index := 0
		for {
			raw, err := lr.r.ReadBytes('\n')
			switch {
			case err == nil:
				line := raw[:len(raw)-1]
				if !yield(Line{Index: index, Bytes: line}) {
					return
				}
				index++
			case err == io.EOF:
				if len(raw) > 0 {
					if !yield(Line{Index: index, Bytes: raw}) {
						return
					}
					index++
				}
				return
			default:
				if !yield(Line{Index: index, Err: err}) {
					return
				}
				index++
			}
		}
	}
}
