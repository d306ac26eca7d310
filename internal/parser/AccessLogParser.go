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

package parser

import (
	"errors"
	"fmt"
	"regexp"
)

// CombinedLogPattern matches one line in the Apache combined log format.
// The protocol token of the request is matched but not captured, and the referrer and user agent
// are independently optional.
const CombinedLogPattern = `^(?P<source_ip>\S+)` +
	`\s+(?P<remote_log>\S+)` +
	`\s+(?P<user_id>\S+)` +
	`\s+\[(?P<timestamp>.*?)\]` +
	`\s+"(?P<request_method>\w+)\s+(?P<requested_url>\S+?)(?:\s+HTTP/[\d.]+)??"` +
	`\s+(?P<http_status>[\d\-]+)` +
	`\s+(?P<bytes_sent>[\d\-]+)` +
	`(?:\s+"(?P<referrer>.*?)")?` +
	`(?:\s+"(?P<user_agent>.*?)")?$`

// ErrNoMatch is returned when a line does not conform to the grammar.
var ErrNoMatch = errors.New("line does not match the access log grammar")

// InternalError is returned when matching a line failed unexpectedly.
type InternalError struct {
	Cause any
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("unexpected error while matching line: %v", e.Cause)
}

// LineParser turns a single trimmed, non-empty log line into a LogRecord.
type LineParser interface {
	Parse(line string) (*LogRecord, error)
}

// RegexLineParser extracts fields using the named capture groups of a regular expression.
// Groups whose names are not in FieldNames are ignored.
type RegexLineParser struct {
	rex *regexp.Regexp

	// groupForField[i] is the submatch index of FieldNames[i], or -1 if the expression does not capture it
	groupForField [fieldCount]int
}

// NewAccessLogParser returns a parser for the Apache combined log format.
func NewAccessLogParser() *RegexLineParser {
	p, err := NewRegexLineParser(CombinedLogPattern)
	if err != nil {
		panic(err)
	}
	return p
}

func NewRegexLineParser(expr string) (*RegexLineParser, error) {
	rex, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to compile line expression: %w", err)
	}
	p := &RegexLineParser{rex: rex}
	found := 0
	for i, name := range FieldNames {
		p.groupForField[i] = rex.SubexpIndex(name)
		if p.groupForField[i] != -1 {
			found++
		}
	}
	if found == 0 {
		return nil, fmt.Errorf("line expression %q has no named capture groups matching any of %v", expr, FieldNames)
	}
	return p, nil
}

// Parse matches the line against the expression. It returns ErrNoMatch if the line does not match,
// and never returns a partially populated record.
func (p *RegexLineParser) Parse(line string) (rec *LogRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = &InternalError{Cause: r}
		}
	}()
	match := p.rex.FindStringSubmatchIndex(line)
	if match == nil {
		return nil, ErrNoMatch
	}
	rec = &LogRecord{}
	for i, group := range p.groupForField {
		if group == -1 {
			continue
		}
		start, end := match[2*group], match[2*group+1]
		if start < 0 {
			// optional group did not participate
			continue
		}
		rec.values[i] = line[start:end]
	}
	return rec, nil
}

func (p *RegexLineParser) String() string {
	return p.rex.String()
}
