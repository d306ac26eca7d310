// Copyright 2024 Jack Bister
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackbister/accesslog2csv/internal/config"
	"github.com/jackbister/accesslog2csv/internal/files"
	"github.com/jackbister/accesslog2csv/internal/metrics"
	"github.com/jackbister/accesslog2csv/internal/parser"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	fullLine    = `127.0.0.1 - frank [10/Oct/2023:13:55:36 -0700] "GET /apache_pb.gif HTTP/1.0" 200 2326 "http://www.example.com/start.html" "Mozilla/4.08 [en] (Win98; I ;Nav)"`
	shortLine   = `10.0.0.1 - - [10/Oct/2023:13:55:36 -0700] "GET /index.html HTTP/1.1" 200 1024`
	garbageLine = "not a log line at all"
	header      = "source_ip,remote_log,user_id,timestamp,request_method,requested_url,http_status,bytes_sent,referrer,user_agent"
)

func TestRun_AccountsForEveryLine(t *testing.T) {
	cfg := newTestConfig(t, fullLine+"\n\n"+garbageLine+"\n   \t\n"+shortLine+"\n")
	logger, logs := observedLogger()

	stats, err := NewDriver(cfg, parser.NewAccessLogParser(), metrics.NewRunStats(), logger).Run(context.Background())
	if err != nil {
		t.Fatalf("got unexpected error from Run: %v", err)
	}
	expected := metrics.Stats{
		LinesRead:     5,
		LinesParsed:   2,
		LinesBlank:    2,
		LinesErrored:  1,
		RowsAttempted: 2,
		RowsWritten:   2,
	}
	if stats != expected {
		t.Fatalf("expected stats %+v but got %+v", expected, stats)
	}
	if !stats.Accounted() {
		t.Errorf("lines read did not equal parsed+blank+errored: %+v", stats)
	}

	content := readFile(t, cfg.OutputPath)
	expectedContent := header + "\r\n" +
		`127.0.0.1,-,frank,10/Oct/2023:13:55:36 -0700,GET,/apache_pb.gif,200,2326,http://www.example.com/start.html,Mozilla/4.08 [en] (Win98; I ;Nav)` + "\r\n" +
		`10.0.0.1,-,-,10/Oct/2023:13:55:36 -0700,GET,/index.html,200,1024,,` + "\r\n"
	if content != expectedContent {
		t.Errorf("unexpected output:\n%q\nexpected:\n%q", content, expectedContent)
	}

	warnings := logs.FilterMessage("failed to parse line").All()
	if len(warnings) != 1 {
		t.Fatalf("expected 1 parse warning but got %v", len(warnings))
	}
	fields := warnings[0].ContextMap()
	if fields["lineNumber"] != int64(3) {
		t.Errorf("expected warning for line 3 but got %v", fields["lineNumber"])
	}
	if fields["line"] != garbageLine {
		t.Errorf("expected warning to contain the line but got %v", fields["line"])
	}
}

func TestRun_TruncatesPreviewOfMalformedLine(t *testing.T) {
	long := strings.Repeat("x", 250)
	cfg := newTestConfig(t, long+"\n")
	logger, logs := observedLogger()

	_, err := NewDriver(cfg, parser.NewAccessLogParser(), metrics.NewRunStats(), logger).Run(context.Background())
	if err != nil {
		t.Fatalf("got unexpected error from Run: %v", err)
	}
	warnings := logs.FilterMessage("failed to parse line").All()
	if len(warnings) != 1 {
		t.Fatalf("expected 1 parse warning but got %v", len(warnings))
	}
	preview := warnings[0].ContextMap()["line"].(string)
	if preview != strings.Repeat("x", 100)+"..." {
		t.Errorf("expected preview to be cut to 100 characters but got %q", preview)
	}
}

func TestRun_IsIdempotent(t *testing.T) {
	cfg := newTestConfig(t, strings.Repeat(fullLine+"\n"+shortLine+"\n"+garbageLine+"\n", 50))

	_, err := NewDriver(cfg, parser.NewAccessLogParser(), metrics.NewRunStats(), zap.NewNop()).Run(context.Background())
	if err != nil {
		t.Fatalf("got unexpected error from first Run: %v", err)
	}
	first := readFile(t, cfg.OutputPath)
	_, err = NewDriver(cfg, parser.NewAccessLogParser(), metrics.NewRunStats(), zap.NewNop()).Run(context.Background())
	if err != nil {
		t.Fatalf("got unexpected error from second Run: %v", err)
	}
	second := readFile(t, cfg.OutputPath)
	if first != second {
		t.Fatal("output of the second run differed from the first run")
	}
	if strings.Count(first, "\r\n") != 101 {
		t.Errorf("expected header and 100 rows but got %v lines", strings.Count(first, "\r\n"))
	}
}

func TestRun_MissingInput(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.InputPath = filepath.Join(dir, "missing.log.gz")
	cfg.OutputPath = filepath.Join(dir, "out.csv")

	_, err := NewDriver(&cfg, parser.NewAccessLogParser(), metrics.NewRunStats(), zap.NewNop()).Run(context.Background())
	var fatal *FatalError
	if !errors.As(err, &fatal) || fatal.Stage != StageInput {
		t.Fatalf("expected fatal input error but got %v", err)
	}
	if !errors.Is(err, files.ErrInputNotFound) {
		t.Errorf("expected error to wrap ErrInputNotFound but got %v", err)
	}
	if _, err := os.Stat(cfg.OutputPath); !os.IsNotExist(err) {
		t.Errorf("expected no output file to be created, stat returned %v", err)
	}
}

func TestRun_UnwritableOutput(t *testing.T) {
	cfg := newTestConfig(t, fullLine+"\n")
	cfg.OutputPath = filepath.Join(t.TempDir(), "no-such-dir", "out.csv")

	_, err := NewDriver(cfg, parser.NewAccessLogParser(), metrics.NewRunStats(), zap.NewNop()).Run(context.Background())
	var fatal *FatalError
	if !errors.As(err, &fatal) || fatal.Stage != StageOutput {
		t.Fatalf("expected fatal output error but got %v", err)
	}
}

func TestRun_RowWriteFailureIsNotFatal(t *testing.T) {
	cfg := newTestConfig(t, "")
	w := &failingWriter{failOn: 2}
	d := newFakeDriver(cfg, &sliceReader{lines: []string{fullLine, shortLine, fullLine}}, w)
	logger, logs := observedLogger()
	d.logger = logger

	stats, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("got unexpected error from Run: %v", err)
	}
	if stats.RowsAttempted != 3 || stats.RowsWritten != 2 || stats.RowErrors != 1 {
		t.Fatalf("unexpected row counters %+v", stats)
	}
	if len(w.written) != 2 {
		t.Errorf("expected processing to continue after a failed row, got %v written rows", len(w.written))
	}
	failures := logs.FilterMessage("failed to write row").All()
	if len(failures) != 1 || failures[0].ContextMap()["row"] != int64(2) {
		t.Errorf("expected one write failure for row 2, got %v", failures)
	}
	if logs.FilterMessage("not all parsed lines were written to the output file").Len() != 1 {
		t.Error("expected the write discrepancy to be logged")
	}
}

func TestRun_ParserInternalErrorIsNotFatal(t *testing.T) {
	cfg := newTestConfig(t, "")
	d := newFakeDriver(cfg, &sliceReader{lines: []string{"boom", shortLine}}, &failingWriter{})
	d.parser = panickyParser{wrapped: parser.NewAccessLogParser()}

	stats, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("got unexpected error from Run: %v", err)
	}
	if stats.LinesErrored != 1 || stats.LinesParsed != 1 {
		t.Fatalf("unexpected line counters %+v", stats)
	}
}

func TestRun_ReadErrorIsFatal(t *testing.T) {
	cfg := newTestConfig(t, "")
	readErr := errors.New("unexpected EOF in gzip stream")
	w := &failingWriter{}
	d := newFakeDriver(cfg, &sliceReader{lines: []string{fullLine}, err: readErr}, w)

	stats, err := d.Run(context.Background())
	var fatal *FatalError
	if !errors.As(err, &fatal) || fatal.Stage != StageRead || !errors.Is(err, readErr) {
		t.Fatalf("expected fatal read error but got %v", err)
	}
	if stats.RowsWritten != 1 || len(w.written) != 1 {
		t.Errorf("expected the row before the read error to be written, got %+v", stats)
	}
	if !w.closed {
		t.Error("expected output to be closed after a fatal read error")
	}
}

func TestRun_Cancelled(t *testing.T) {
	cfg := newTestConfig(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &sliceReader{lines: []string{fullLine}}
	d := newFakeDriver(cfg, r, &failingWriter{})

	_, err := d.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled but got %v", err)
	}
	if !r.closed {
		t.Error("expected input to be closed after cancellation")
	}
}

func TestRun_WritesMetricsFile(t *testing.T) {
	cfg := newTestConfig(t, fullLine+"\n"+garbageLine+"\n")
	cfg.MetricsFile = filepath.Join(t.TempDir(), "run.prom")

	_, err := NewDriver(cfg, parser.NewAccessLogParser(), metrics.NewRunStats(), zap.NewNop()).Run(context.Background())
	if err != nil {
		t.Fatalf("got unexpected error from Run: %v", err)
	}
	content := readFile(t, cfg.MetricsFile)
	for _, s := range []string{
		"accesslog2csv_lines_read_total 2",
		`accesslog2csv_lines_total{outcome="errored"} 1`,
		`accesslog2csv_rows_total{outcome="written"} 1`,
	} {
		if !strings.Contains(content, s) {
			t.Errorf("expected metrics file to contain %q, got:\n%s", s, content)
		}
	}
}

type sliceReader struct {
	lines  []string
	err    error
	closed bool
}

func (r *sliceReader) Next() (string, error) {
	if len(r.lines) == 0 {
		if r.err != nil {
			return "", r.err
		}
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *sliceReader) Close() error {
	r.closed = true
	return nil
}

type failingWriter struct {
	failOn  int
	calls   int
	written []*parser.LogRecord
	closed  bool
}

func (w *failingWriter) WriteRecord(rec *parser.LogRecord) error {
	w.calls++
	if w.calls == w.failOn {
		return fmt.Errorf("disk full")
	}
	w.written = append(w.written, rec)
	return nil
}

func (w *failingWriter) Close() error {
	w.closed = true
	return nil
}

type panickyParser struct {
	wrapped parser.LineParser
}

func (p panickyParser) Parse(line string) (*parser.LogRecord, error) {
	if line == "boom" {
		return nil, &parser.InternalError{Cause: "boom"}
	}
	return p.wrapped.Parse(line)
}

func newFakeDriver(cfg *config.Config, r LineReader, w RecordWriter) *Driver {
	d := NewDriver(cfg, parser.NewAccessLogParser(), metrics.NewRunStats(), zap.NewNop())
	d.openInput = func(string) (LineReader, error) {
		return r, nil
	}
	d.createOutput = func(string, bool) (RecordWriter, error) {
		return w, nil
	}
	return d
}

func newTestConfig(t *testing.T, content string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.InputPath = filepath.Join(dir, "input.log.gz")
	cfg.OutputPath = filepath.Join(dir, "parsed_logs.csv")

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(content)); err != nil {
		t.Fatalf("got error when compressing test input: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("got error when compressing test input: %v", err)
	}
	if err := os.WriteFile(cfg.InputPath, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("got error when writing test input: %v", err)
	}
	return &cfg
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func readFile(t *testing.T, filename string) string {
	t.Helper()
	b, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("got error when reading %s: %v", filename, err)
	}
	return string(b)
}
