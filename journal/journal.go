// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package journal keeps the append-only record of executed
// operations.
//
// Segments are lz4-framed files of CBOR records, rotated by
// compressed size. Every append flushes the compressed block into the
// file, so a reader sees records promptly and a crash loses at most
// what the OS had buffered; the file is synced on rotation and close.
// A torn tail from a crash makes the remainder of that segment
// unreadable but never touches earlier segments; the writer resumes
// numbering after the last decodable record and starts a fresh
// segment.
//
// The journal is an audit trail, not the source of truth: state lives
// in the ledger store, and nothing replays the journal on boot.
package journal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pierrec/lz4/v4"

	"github.com/fragwuerdig/cw20-taxed/ledger"
	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/codec"
	"github.com/fragwuerdig/cw20-taxed/token"
)

const (
	segmentPrefix = "journal-"
	segmentSuffix = ".lz4"

	// DefaultSegmentSize is the compressed size past which a segment
	// rotates.
	DefaultSegmentSize = 8 << 20
)

// Record is one executed operation. Sequence is assigned by the
// writer; everything else comes from the execution.
type Record struct {
	Sequence   uint64       `json:"sequence"`
	Height     uint64       `json:"height"`
	Time       time.Time    `json:"time"`
	Caller     addr.Address `json:"caller"`
	Msg        token.Msg    `json:"msg"`
	Attributes []Attribute  `json:"attributes,omitempty"`
}

// Attribute is one emitted key/value pair.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Attributes converts an execution's attributes to journal form.
func Attributes(attrs []ledger.Attribute) []Attribute {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]Attribute, len(attrs))
	for i, a := range attrs {
		out[i] = Attribute{Key: a.Key, Value: a.Value}
	}
	return out
}

// Config holds the parameters for opening a journal writer.
type Config struct {
	// Dir is the segment directory. Created if missing. Required.
	Dir string

	// SegmentSize is the compressed size past which a segment
	// rotates. Non-positive means DefaultSegmentSize.
	SegmentSize int64

	// Logger receives rotation and recovery lines. Nil discards.
	Logger *slog.Logger
}

// Writer appends records to the journal. Safe for concurrent use.
type Writer struct {
	dir    string
	limit  int64
	logger *slog.Logger

	mu         sync.Mutex
	file       *os.File
	counter    *countingWriter
	lz         *lz4.Writer
	encoder    *codec.Encoder
	next       uint64
	lastHeight uint64
}

// OpenWriter opens the journal in cfg.Dir, recovering the next
// sequence number from the last segment. The first segment file is
// created on first append.
func OpenWriter(cfg Config) (*Writer, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("journal: Dir is required")
	}
	limit := cfg.SegmentSize
	if limit <= 0 {
		limit = DefaultSegmentSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal: creating %s: %w", cfg.Dir, err)
	}
	next, lastHeight, err := recoverTail(cfg.Dir, logger)
	if err != nil {
		return nil, err
	}
	return &Writer{dir: cfg.Dir, limit: limit, logger: logger, next: next, lastHeight: lastHeight}, nil
}

// NextSequence returns the sequence number the next append will get.
func (w *Writer) NextSequence() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.next
}

// LastHeight returns the Height field of the most recent record, zero
// when the journal holds none. Callers resume their height counter
// from it after a restart.
func (w *Writer) LastHeight() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastHeight
}

// Append writes one record and returns its assigned sequence number.
// The record's Sequence field is ignored.
func (w *Writer) Append(record Record) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		if err := w.openSegment(); err != nil {
			return 0, err
		}
	}
	record.Sequence = w.next
	if err := w.encoder.Encode(record); err != nil {
		return 0, fmt.Errorf("journal: encoding record %d: %w", record.Sequence, err)
	}
	if err := w.lz.Flush(); err != nil {
		return 0, fmt.Errorf("journal: flushing segment: %w", err)
	}
	w.next++
	w.lastHeight = record.Height

	if w.counter.written >= w.limit {
		if err := w.closeSegment(); err != nil {
			return 0, err
		}
	}
	return record.Sequence, nil
}

// Close finishes the active segment. The writer must not be used
// afterwards.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.closeSegment()
}

func (w *Writer) openSegment() error {
	name := segmentName(w.next)
	path := filepath.Join(w.dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("journal: creating segment %s: %w", name, err)
	}
	w.file = file
	w.counter = &countingWriter{file: file}
	w.lz = lz4.NewWriter(w.counter)
	w.encoder = codec.NewEncoder(w.lz)
	return nil
}

func (w *Writer) closeSegment() error {
	name := w.file.Name()
	written := w.counter.written
	if err := w.lz.Close(); err != nil {
		return fmt.Errorf("journal: closing frame of %s: %w", name, err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("journal: syncing %s: %w", name, err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("journal: closing %s: %w", name, err)
	}
	w.file, w.counter, w.lz, w.encoder = nil, nil, nil, nil
	w.logger.Debug("journal segment closed", "segment", filepath.Base(name), "bytes", written)
	return nil
}

// Reader iterates the journal's records across all segments in order.
type Reader struct {
	dir      string
	segments []string
	index    int
	file     *os.File
	decoder  *codec.Decoder
	skipped  []string
}

// OpenReader opens the journal in dir for sequential reading.
func OpenReader(dir string) (*Reader, error) {
	segments, err := listSegments(dir)
	if err != nil {
		return nil, err
	}
	return &Reader{dir: dir, segments: segments}, nil
}

// Next returns the next record, or io.EOF after the last one. A
// segment tail that cannot be decoded (torn by a crash) is skipped and
// recorded; reading continues with the next segment.
func (r *Reader) Next() (Record, error) {
	for {
		if r.decoder == nil {
			if r.index >= len(r.segments) {
				return Record{}, io.EOF
			}
			name := r.segments[r.index]
			file, err := os.Open(filepath.Join(r.dir, name))
			if err != nil {
				return Record{}, fmt.Errorf("journal: opening segment %s: %w", name, err)
			}
			r.file = file
			r.decoder = codec.NewDecoder(lz4.NewReader(file))
		}

		var record Record
		err := r.decoder.Decode(&record)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, io.EOF) {
			r.skipped = append(r.skipped, r.segments[r.index])
		}
		r.file.Close()
		r.file, r.decoder = nil, nil
		r.index++
	}
}

// Skipped returns the segment files whose tails could not be decoded.
func (r *Reader) Skipped() []string { return r.skipped }

// Close releases the reader.
func (r *Reader) Close() error {
	if r.file != nil {
		err := r.file.Close()
		r.file, r.decoder = nil, nil
		return err
	}
	return nil
}

// Replay calls fn for every record in dir, in sequence order. It
// stops at fn's first error.
func Replay(dir string, fn func(Record) error) error {
	reader, err := OpenReader(dir)
	if err != nil {
		return err
	}
	defer reader.Close()
	for {
		record, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(record); err != nil {
			return err
		}
	}
}

// recoverTail reads the last segment to find where sequence numbering
// resumes and what height the journal last recorded. An empty last
// segment (created but never flushed before a crash) is removed so
// its name can be reused, and recovery retries on the segment before
// it.
func recoverTail(dir string, logger *slog.Logger) (uint64, uint64, error) {
	segments, err := listSegments(dir)
	if err != nil {
		return 0, 0, err
	}
	if len(segments) == 0 {
		return 1, 0, nil
	}

	last := segments[len(segments)-1]
	file, err := os.Open(filepath.Join(dir, last))
	if err != nil {
		return 0, 0, fmt.Errorf("journal: opening segment %s: %w", last, err)
	}
	defer file.Close()

	decoder := codec.NewDecoder(lz4.NewReader(file))
	var count int
	var tail Record
	for {
		var record Record
		if err := decoder.Decode(&record); err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn("journal segment has an undecodable tail",
					"segment", last, "records", count)
			}
			break
		}
		count++
		tail = record
	}

	if count == 0 {
		first, err := parseSegmentName(last)
		if err != nil {
			return 0, 0, err
		}
		if err := os.Remove(filepath.Join(dir, last)); err != nil {
			return 0, 0, fmt.Errorf("journal: removing empty segment %s: %w", last, err)
		}
		logger.Warn("removed empty journal segment", "segment", last)
		next, lastHeight, err := recoverTail(dir, logger)
		if err != nil {
			return 0, 0, err
		}
		// The empty segment's name still fixes the floor of the
		// numbering when nothing older survives.
		if next < first {
			next = first
		}
		return next, lastHeight, nil
	}
	return tail.Sequence + 1, tail.Height, nil
}

func listSegments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("journal: reading %s: %w", dir, err)
	}
	var segments []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.Type().IsRegular() &&
			strings.HasPrefix(name, segmentPrefix) && strings.HasSuffix(name, segmentSuffix) {
			segments = append(segments, name)
		}
	}
	// Zero-padded names make lexical order sequence order.
	slices.Sort(segments)
	return segments, nil
}

func segmentName(first uint64) string {
	return fmt.Sprintf("%s%020d%s", segmentPrefix, first, segmentSuffix)
}

func parseSegmentName(name string) (uint64, error) {
	digits := strings.TrimSuffix(strings.TrimPrefix(name, segmentPrefix), segmentSuffix)
	first, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("journal: malformed segment name %q", name)
	}
	return first, nil
}

type countingWriter struct {
	file    *os.File
	written int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.file.Write(p)
	c.written += int64(n)
	return n, err
}
