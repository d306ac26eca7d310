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

package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "accesslog2csv"

// Stats holds the counters of one pipeline run.
type Stats struct {
	LinesRead    int64
	LinesParsed  int64
	LinesBlank   int64
	LinesErrored int64

	RowsAttempted int64
	RowsWritten   int64
	RowErrors     int64
}

// Accounted reports whether every line read was either parsed, blank or errored.
func (s Stats) Accounted() bool {
	return s.LinesRead == s.LinesParsed+s.LinesBlank+s.LinesErrored
}

func (s Stats) Summary() string {
	sb := strings.Builder{}
	sb.WriteString(strings.Repeat("-", 50))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Total lines read: %d\n", s.LinesRead)
	fmt.Fprintf(&sb, "Lines parsed: %d\n", s.LinesParsed)
	fmt.Fprintf(&sb, "Blank lines skipped: %d\n", s.LinesBlank)
	fmt.Fprintf(&sb, "Lines with errors: %d\n", s.LinesErrored)
	fmt.Fprintf(&sb, "Rows attempted: %d\n", s.RowsAttempted)
	fmt.Fprintf(&sb, "Rows written: %d\n", s.RowsWritten)
	if s.RowsAttempted != s.RowsWritten {
		fmt.Fprintf(&sb, "WARNING: %d rows failed to be written\n", s.RowsAttempted-s.RowsWritten)
	}
	return sb.String()
}

// RunStats owns the counters of a run and mirrors them to Prometheus counters on a private registry.
// It is not safe for concurrent use.
type RunStats struct {
	stats Stats

	registry    *prometheus.Registry
	linesRead   prometheus.Counter
	lines       *prometheus.CounterVec
	rows        *prometheus.CounterVec
	runDuration prometheus.Gauge
	lastRun     prometheus.Gauge
}

func NewRunStats() *RunStats {
	rs := &RunStats{
		registry: prometheus.NewRegistry(),
		linesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_read_total",
			Help:      "Number of lines read from the input file",
		}),
		lines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_total",
			Help:      "Number of lines read from the input file by outcome",
		}, []string{"outcome"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Number of rows written to the output file by outcome",
		}, []string{"outcome"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last run",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time when the last run finished",
		}),
	}
	rs.registry.MustRegister(rs.linesRead, rs.lines, rs.rows, rs.runDuration, rs.lastRun)
	// Initialize the labels so that all series are exported even when zero
	for _, outcome := range []string{"parsed", "blank", "errored"} {
		rs.lines.WithLabelValues(outcome)
	}
	for _, outcome := range []string{"written", "failed"} {
		rs.rows.WithLabelValues(outcome)
	}
	return rs
}

func (rs *RunStats) LineRead() {
	rs.stats.LinesRead++
	rs.linesRead.Inc()
}

func (rs *RunStats) LineParsed() {
	rs.stats.LinesParsed++
	rs.lines.WithLabelValues("parsed").Inc()
}

func (rs *RunStats) LineBlank() {
	rs.stats.LinesBlank++
	rs.lines.WithLabelValues("blank").Inc()
}

func (rs *RunStats) LineErrored() {
	rs.stats.LinesErrored++
	rs.lines.WithLabelValues("errored").Inc()
}

func (rs *RunStats) RowAttempted() {
	rs.stats.RowsAttempted++
}

func (rs *RunStats) RowWritten() {
	rs.stats.RowsWritten++
	rs.rows.WithLabelValues("written").Inc()
}

func (rs *RunStats) RowFailed() {
	rs.stats.RowErrors++
	rs.rows.WithLabelValues("failed").Inc()
}

func (rs *RunStats) RunFinished(duration time.Duration, at time.Time) {
	rs.runDuration.Set(duration.Seconds())
	rs.lastRun.Set(float64(at.Unix()))
}

// Snapshot returns a copy of the current counters.
func (rs *RunStats) Snapshot() Stats {
	return rs.stats
}

func (rs *RunStats) Gatherer() prometheus.Gatherer {
	return rs.registry
}

// WriteTextfile writes the counters in the Prometheus text format, for use with the node_exporter textfile collector.
func (rs *RunStats) WriteTextfile(filename string) error {
	if err := prometheus.WriteToTextfile(filename, rs.registry); err != nil {
		return fmt.Errorf("error writing metrics to file=%s: %w", filename, err)
	}
	return nil
}
