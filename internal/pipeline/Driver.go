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
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jackbister/accesslog2csv/internal/config"
	"github.com/jackbister/accesslog2csv/internal/files"
	"github.com/jackbister/accesslog2csv/internal/metrics"
	"github.com/jackbister/accesslog2csv/internal/output"
	"github.com/jackbister/accesslog2csv/internal/parser"
	"github.com/jackbister/accesslog2csv/internal/util"
	"go.uber.org/zap"
)

// LineReader returns one line of input per call to Next, and io.EOF when there are no more lines.
type LineReader interface {
	Next() (string, error)
	Close() error
}

type RecordWriter interface {
	WriteRecord(rec *parser.LogRecord) error
	Close() error
}

// Stage is the part of a run in which a FatalError occurred.
type Stage string

const (
	StageInput  Stage = "input"
	StageOutput Stage = "output"
	StageRead   Stage = "read"
	StageClose  Stage = "close"
)

// FatalError is returned by Driver.Run when the run could not be completed because the input or output file
// could not be opened, read or written.
type FatalError struct {
	Stage Stage
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal error during %s: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Driver reads the input line by line, parses every non-blank line and writes the parsed records to the output.
// A Driver should only be run once, since its counters are not reset between runs.
type Driver struct {
	cfg    *config.Config
	parser parser.LineParser
	stats  *metrics.RunStats
	logger *zap.Logger

	openInput    func(filename string) (LineReader, error)
	createOutput func(filename string, useCRLF bool) (RecordWriter, error)
}

func NewDriver(cfg *config.Config, p parser.LineParser, stats *metrics.RunStats, logger *zap.Logger) *Driver {
	return &Driver{
		cfg:    cfg,
		parser: p,
		stats:  stats,
		logger: logger,

		openInput: func(filename string) (LineReader, error) {
			return files.OpenGzipLines(filename)
		},
		createOutput: func(filename string, useCRLF bool) (RecordWriter, error) {
			return output.CreateCsv(filename, useCRLF)
		},
	}
}

// Run processes the whole input. Lines that cannot be parsed and rows that cannot be written are logged and counted
// but do not stop the run. A *FatalError is returned if the input or output cannot be used, in which case the output
// written so far is left as is. The input is checked before the output is created, so a missing input never
// produces an output file.
func (d *Driver) Run(ctx context.Context) (metrics.Stats, error) {
	start := time.Now()
	in, err := d.openInput(d.cfg.InputPath)
	if err != nil {
		d.logger.Error("could not open input file", zap.String("fileName", d.cfg.InputPath), zap.Error(err))
		return d.stats.Snapshot(), &FatalError{Stage: StageInput, Err: err}
	}
	defer func() {
		if err := in.Close(); err != nil {
			d.logger.Warn("got error when closing input file", zap.String("fileName", d.cfg.InputPath), zap.Error(err))
		}
	}()

	out, err := d.createOutput(d.cfg.OutputPath, d.cfg.UseCRLF)
	if err != nil {
		d.logger.Error("could not create output file", zap.String("fileName", d.cfg.OutputPath), zap.Error(err))
		return d.stats.Snapshot(), &FatalError{Stage: StageOutput, Err: err}
	}

	d.logger.Info("starting log processing",
		zap.String("inputFile", d.cfg.InputPath),
		zap.String("outputFile", d.cfg.OutputPath))
	runErr := d.processLines(ctx, in, out)
	if err := out.Close(); err != nil && runErr == nil {
		runErr = &FatalError{Stage: StageClose, Err: err}
	}

	stats := d.stats.Snapshot()
	d.logger.Info("finished reading log file",
		zap.Int64("linesRead", stats.LinesRead),
		zap.Int64("linesParsed", stats.LinesParsed),
		zap.Int64("linesBlank", stats.LinesBlank),
		zap.Int64("linesErrored", stats.LinesErrored))
	if stats.RowsAttempted != stats.RowsWritten {
		d.logger.Warn("not all parsed lines were written to the output file",
			zap.Int64("rowsAttempted", stats.RowsAttempted),
			zap.Int64("rowsWritten", stats.RowsWritten),
			zap.String("outputFile", d.cfg.OutputPath))
	} else {
		d.logger.Info("finished writing output file",
			zap.Int64("rowsAttempted", stats.RowsAttempted),
			zap.Int64("rowsWritten", stats.RowsWritten),
			zap.String("outputFile", d.cfg.OutputPath))
	}

	end := time.Now()
	d.stats.RunFinished(end.Sub(start), end)
	if d.cfg.MetricsFile != "" {
		if err := d.stats.WriteTextfile(d.cfg.MetricsFile); err != nil {
			d.logger.Warn("got error when writing metrics file", zap.String("fileName", d.cfg.MetricsFile), zap.Error(err))
		}
	}
	return stats, runErr
}

func (d *Driver) processLines(ctx context.Context, in LineReader, out RecordWriter) error {
	lineNumber := int64(0)
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run was cancelled after line %v: %w", lineNumber, err)
		}
		line, err := in.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			d.logger.Error("got error when reading input file",
				zap.String("fileName", d.cfg.InputPath),
				zap.Int64("lineNumber", lineNumber+1),
				zap.Error(err))
			return &FatalError{Stage: StageRead, Err: err}
		}
		lineNumber++
		d.stats.LineRead()

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			d.stats.LineBlank()
			continue
		}

		rec, err := d.parser.Parse(trimmed)
		if err != nil {
			d.stats.LineErrored()
			if errors.Is(err, parser.ErrNoMatch) {
				d.logger.Warn("failed to parse line",
					zap.Int64("lineNumber", lineNumber),
					zap.String("line", util.Preview(trimmed, d.cfg.PreviewLength)))
			} else {
				d.logger.Error("unexpected error while parsing line",
					zap.Int64("lineNumber", lineNumber),
					zap.String("line", util.Preview(trimmed, d.cfg.PreviewLength)),
					zap.Error(err))
			}
			continue
		}
		d.stats.LineParsed()

		d.stats.RowAttempted()
		if err := out.WriteRecord(rec); err != nil {
			d.stats.RowFailed()
			d.logger.Error("failed to write row",
				zap.Int64("row", d.stats.Snapshot().RowsAttempted),
				zap.String("record", util.Preview(strings.Join(rec.Values(), " "), d.cfg.PreviewLength)),
				zap.Error(err))
			continue
		}
		d.stats.RowWritten()
	}
}
