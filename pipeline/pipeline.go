// Package pipeline drives the single-pass, single-threaded streaming
// loop: read a line, run it through an ordered list of filter
// containers with cascading rollover, decide whether to emit it, and
// (on clean shutdown) persist whichever containers are file-backed.
package pipeline

import (
	"bufio"
	"fmt"
	"io"

	"github.com/kenorb-dev/bloomline/filecodec"
	"github.com/kenorb-dev/bloomline/filter"
	"github.com/kenorb-dev/bloomline/internal/bloomlog"
)

const outputBufferSize = 64 * 1024

// Pipeline owns an ordered sequence of containers and the flags that
// govern how lines are checked, inserted, and emitted.
type Pipeline struct {
	containers []filter.Container
	cursor     int

	writeMode bool
	inverse   bool
	silent    bool

	logger *bloomlog.Logger
}

// New builds a Pipeline over containers, in the given order. Order is
// authoritative: containers[0] is the oldest shard. logger may be nil,
// in which case diagnostic events are simply not logged.
func New(containers []filter.Container, writeMode, inverse, silent bool, logger *bloomlog.Logger) *Pipeline {
	return &Pipeline{
		containers: containers,
		writeMode:  writeMode,
		inverse:    inverse,
		silent:     silent,
		logger:     logger,
	}
}

// Cursor returns the current writable cursor index, for tests asserting
// monotonicity and rollover.
func (p *Pipeline) Cursor() int {
	return p.cursor
}

// Run consumes r line by line until EOF, writing admitted lines to w
// through a buffered writer, and persists any file-backed containers
// once streaming ends cleanly. A stdout write failure aborts the run
// immediately and is returned to the caller; per-line read errors are
// logged and do not abort.
func (p *Pipeline) Run(r io.Reader, w io.Writer) error {
	bw := bufio.NewWriterSize(w, outputBufferSize)
	lr := newLineReader(r)

	for line := range lr.Iter() {
		if line.Err != nil {
			if p.logger != nil {
				p.logger.Warn("msg", "stdin read error", "line", line.Index, "err", line.Err)
			}
			continue
		}
		if err := p.processLine(line.Bytes, bw); err != nil {
			return fmt.Errorf("pipeline: write to stdout: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("pipeline: flush stdout: %w", err)
	}

	return p.persist()
}

// processLine implements the cascading admission state machine: advance
// the writable cursor, scan containers for a match (inserting only at
// the cursor), then decide whether to emit.
func (p *Pipeline) processLine(line []byte, w *bufio.Writer) error {
	cursorAdvanced := false
	for p.cursor < len(p.containers) && p.containers[p.cursor].IsFull() {
		p.cursor++
		cursorAdvanced = true
	}

	found := false
	written := false

	for i, c := range p.containers {
		if p.writeMode && i == p.cursor {
			result := c.CheckAndSet(line)
			found = result
			written = found
			break
		}
		if c.Check(line) {
			found = true
			break
		}
	}

	if p.logger != nil {
		p.logger.Debug("event", "check", "found", found, "written", written, "cursor", p.cursor, "cursor_advanced", cursorAdvanced)
	}

	emit := p.inverse != !found
	if !emit || p.silent {
		return nil
	}

	if _, err := w.Write(line); err != nil {
		return err
	}
	return w.WriteByte('\n')
}

// persist writes every file-backed container back to disk. It only
// runs when write_mode is set; memory-backed containers are discarded
// on shutdown regardless.
func (p *Pipeline) persist() error {
	if !p.writeMode {
		return nil
	}
	for _, c := range p.containers {
		md := c.Metadata()
		if md.Source != filter.SourceFile {
			continue
		}
		if err := filecodec.Write(c, md.Path); err != nil {
			if p.logger != nil {
				p.logger.Error("msg", "failed to persist container", "path", md.Path, "err", err)
			}
			return fmt.Errorf("pipeline: persist %s: %w", md.Path, err)
		}
	}
	return nil
}
