// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package journal_test

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fragwuerdig/cw20-taxed/journal"
	"github.com/fragwuerdig/cw20-taxed/ledger"
	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
	"github.com/fragwuerdig/cw20-taxed/token"
)

var (
	alice = addr.MustParse("alice")
	bob   = addr.MustParse("bob")
)

// sampleRecord builds a transfer record. Journal times are encoded at
// second precision, so samples use whole seconds.
func sampleRecord(height, value uint64) journal.Record {
	return journal.Record{
		Height: height,
		Time:   time.Unix(1_770_000_000+int64(height), 0).UTC(),
		Caller: alice,
		Msg: token.Msg{
			Transfer: &token.TransferMsg{Recipient: bob, Amount: amount.New(value)},
		},
		Attributes: journal.Attributes([]ledger.Attribute{
			{Key: "action", Value: "transfer"},
			{Key: "amount", Value: amount.New(value).String()},
		}),
	}
}

func collect(t *testing.T, dir string) []journal.Record {
	t.Helper()
	var records []journal.Record
	err := journal.Replay(dir, func(r journal.Record) error {
		records = append(records, r)
		return nil
	})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	return records
}

func segmentFiles(t *testing.T, dir string) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "journal-*.lz4"))
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	return files
}

func TestAppendAndReplay(t *testing.T) {
	dir := t.TempDir()
	writer, err := journal.OpenWriter(journal.Config{Dir: dir})
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	samples := []journal.Record{sampleRecord(1, 100), sampleRecord(2, 250), sampleRecord(3, 75)}
	samples[2].Attributes = nil
	for i, sample := range samples {
		seq, err := writer.Append(sample)
		if err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
		if want := uint64(i + 1); seq != want {
			t.Errorf("Append returned sequence %d, want %d", seq, want)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	records := collect(t, dir)
	if len(records) != 3 {
		t.Fatalf("replayed %d records, want 3", len(records))
	}
	got := records[1]
	if got.Sequence != 2 || got.Height != 2 {
		t.Errorf("record 1 has sequence %d height %d, want 2 2", got.Sequence, got.Height)
	}
	if !got.Time.Equal(samples[1].Time) {
		t.Errorf("record 1 time = %v, want %v", got.Time, samples[1].Time)
	}
	if !got.Caller.Equal(alice) {
		t.Errorf("record 1 caller = %v, want %v", got.Caller, alice)
	}
	if got.Msg.Transfer == nil {
		t.Fatalf("record 1 lost its transfer message: %+v", got.Msg)
	}
	if !got.Msg.Transfer.Recipient.Equal(bob) || !got.Msg.Transfer.Amount.Equal(amount.New(250)) {
		t.Errorf("record 1 transfer = %+v, want 250 to %v", got.Msg.Transfer, bob)
	}
	if len(got.Attributes) != 2 || got.Attributes[0].Key != "action" || got.Attributes[0].Value != "transfer" {
		t.Errorf("record 1 attributes = %+v", got.Attributes)
	}
	if len(records[2].Attributes) != 0 {
		t.Errorf("record 2 attributes = %+v, want none", records[2].Attributes)
	}

	reader, err := journal.OpenReader(dir)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer reader.Close()
	for range records {
		if _, err := reader.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	if _, err := reader.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next after last record = %v, want io.EOF", err)
	}
	if skipped := reader.Skipped(); len(skipped) != 0 {
		t.Errorf("Skipped() = %v, want none", skipped)
	}
}

func TestSequenceContinuityAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	writer, err := journal.OpenWriter(journal.Config{Dir: dir})
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	for i := uint64(1); i <= 2; i++ {
		if _, err := writer.Append(sampleRecord(i, 10*i)); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	writer, err = journal.OpenWriter(journal.Config{Dir: dir})
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	if got := writer.NextSequence(); got != 3 {
		t.Fatalf("NextSequence after reopen = %d, want 3", got)
	}
	if got := writer.LastHeight(); got != 2 {
		t.Fatalf("LastHeight after reopen = %d, want 2", got)
	}
	record := sampleRecord(3, 30)
	record.Sequence = 999 // ignored; the writer numbers records itself
	seq, err := writer.Append(record)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if seq != 3 {
		t.Errorf("Append returned sequence %d, want 3", seq)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	records := collect(t, dir)
	if len(records) != 3 {
		t.Fatalf("replayed %d records, want 3", len(records))
	}
	for i, r := range records {
		if r.Sequence != uint64(i+1) {
			t.Errorf("record %d has sequence %d, want %d", i, r.Sequence, i+1)
		}
	}
	if files := segmentFiles(t, dir); len(files) != 2 {
		t.Errorf("found %d segments, want 2 (one per writer)", len(files))
	}
}

func TestRotationBySize(t *testing.T) {
	dir := t.TempDir()
	writer, err := journal.OpenWriter(journal.Config{Dir: dir, SegmentSize: 1})
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	for i := uint64(1); i <= 3; i++ {
		if _, err := writer.Append(sampleRecord(i, i)); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if files := segmentFiles(t, dir); len(files) != 3 {
		t.Fatalf("found %d segments, want 3 (every record past the limit)", len(files))
	}
	records := collect(t, dir)
	if len(records) != 3 {
		t.Fatalf("replayed %d records, want 3", len(records))
	}
	for i, r := range records {
		if r.Sequence != uint64(i+1) {
			t.Errorf("record %d has sequence %d, want %d", i, r.Sequence, i+1)
		}
	}
}

func TestTornTailRecovery(t *testing.T) {
	dir := t.TempDir()
	writer, err := journal.OpenWriter(journal.Config{Dir: dir})
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	const total = 40
	for i := uint64(1); i <= total; i++ {
		if _, err := writer.Append(sampleRecord(i, 1000+i)); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files := segmentFiles(t, dir)
	if len(files) != 1 {
		t.Fatalf("found %d segments, want 1", len(files))
	}
	info, err := os.Stat(files[0])
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if err := os.Truncate(files[0], info.Size()-20); err != nil {
		t.Fatalf("Truncate: %v", err)
	}

	reader, err := journal.OpenReader(dir)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	var survived []journal.Record
	for {
		record, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		survived = append(survived, record)
	}
	reader.Close()
	if len(survived) == 0 || len(survived) >= total {
		t.Fatalf("read %d records from the torn segment, want between 1 and %d", len(survived), total-1)
	}
	if skipped := reader.Skipped(); len(skipped) != 1 {
		t.Errorf("Skipped() = %v, want the torn segment", skipped)
	}

	// The writer resumes after the last decodable record and leaves
	// the torn segment alone.
	writer, err = journal.OpenWriter(journal.Config{Dir: dir})
	if err != nil {
		t.Fatalf("reopening over torn segment: %v", err)
	}
	wantNext := uint64(len(survived)) + 1
	if got := writer.NextSequence(); got != wantNext {
		t.Fatalf("NextSequence = %d, want %d", got, wantNext)
	}
	if got := writer.LastHeight(); got != uint64(len(survived)) {
		t.Fatalf("LastHeight = %d, want %d", got, len(survived))
	}
	seq, err := writer.Append(sampleRecord(uint64(total+1), 9))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if seq != wantNext {
		t.Errorf("Append returned sequence %d, want %d", seq, wantNext)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if files := segmentFiles(t, dir); len(files) != 2 {
		t.Errorf("found %d segments after reopen, want 2", len(files))
	}

	records := collect(t, dir)
	if len(records) != len(survived)+1 {
		t.Fatalf("replayed %d records, want %d", len(records), len(survived)+1)
	}
	if last := records[len(records)-1]; last.Sequence != wantNext {
		t.Errorf("last record has sequence %d, want %d", last.Sequence, wantNext)
	}
}

func TestEmptySegmentRemoved(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "journal-00000000000000000001.lz4")
	if err := os.WriteFile(stale, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	writer, err := journal.OpenWriter(journal.Config{Dir: dir})
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	if got := writer.NextSequence(); got != 1 {
		t.Fatalf("NextSequence = %d, want 1", got)
	}
	if got := writer.LastHeight(); got != 0 {
		t.Fatalf("LastHeight = %d, want 0 for an empty journal", got)
	}
	if seq, err := writer.Append(sampleRecord(1, 5)); err != nil || seq != 1 {
		t.Fatalf("Append = %d, %v; want 1, nil", seq, err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if files := segmentFiles(t, dir); len(files) != 1 {
		t.Errorf("found %d segments, want the empty one replaced", len(files))
	}
}

func TestReplayStopsOnError(t *testing.T) {
	dir := t.TempDir()
	writer, err := journal.OpenWriter(journal.Config{Dir: dir})
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	for i := uint64(1); i <= 3; i++ {
		if _, err := writer.Append(sampleRecord(i, i)); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	sentinel := fmt.Errorf("stop here")
	var seen int
	err = journal.Replay(dir, func(r journal.Record) error {
		seen++
		if r.Sequence == 2 {
			return sentinel
		}
		return nil
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Replay = %v, want the callback's error", err)
	}
	if seen != 2 {
		t.Errorf("callback ran %d times, want 2", seen)
	}
}

func TestOpenWriterRequiresDir(t *testing.T) {
	if _, err := journal.OpenWriter(journal.Config{}); err == nil {
		t.Fatal("OpenWriter accepted an empty Dir")
	}
}

func TestOpenReaderMissingDir(t *testing.T) {
	reader, err := journal.OpenReader(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer reader.Close()
	if _, err := reader.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next = %v, want io.EOF", err)
	}
}
