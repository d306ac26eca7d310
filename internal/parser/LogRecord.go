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

// FieldNames is the column order of every LogRecord and of the CSV output.
var FieldNames = []string{
	"source_ip",
	"remote_log",
	"user_id",
	"timestamp",
	"request_method",
	"requested_url",
	"http_status",
	"bytes_sent",
	"referrer",
	"user_agent",
}

const fieldCount = 10

var fieldIndex = func() map[string]int {
	m := make(map[string]int, len(FieldNames))
	for i, name := range FieldNames {
		m[name] = i
	}
	return m
}()

// LogRecord is the result of successfully parsing one access log line.
// Every field in FieldNames is always present, absent fields hold "".
// A LogRecord cannot be modified after it has been created.
type LogRecord struct {
	values [fieldCount]string
}

// NewLogRecord creates a LogRecord from a field map. Keys that are not in FieldNames are dropped
// and missing keys are set to "".
func NewLogRecord(fields map[string]string) *LogRecord {
	rec := &LogRecord{}
	for k, v := range fields {
		if i, ok := fieldIndex[k]; ok {
			rec.values[i] = v
		}
	}
	return rec
}

// Field returns the value of the named field, or "" if the name is not in FieldNames.
func (r *LogRecord) Field(name string) string {
	i, ok := fieldIndex[name]
	if !ok {
		return ""
	}
	return r.values[i]
}

// Values returns a copy of the field values in FieldNames order.
func (r *LogRecord) Values() []string {
	ret := make([]string, fieldCount)
	copy(ret, r.values[:])
	return ret
}

// Fields returns a copy of the record as a map from field name to value.
func (r *LogRecord) Fields() map[string]string {
	ret := make(map[string]string, fieldCount)
	for i, name := range FieldNames {
		ret[name] = r.values[i]
	}
	return ret
}

func (r *LogRecord) SourceIP() string { return r.values[0] }
func (r *LogRecord) RemoteLog() string { return r.values[1] }
func (r *LogRecord) UserID() string { return r.values[2] }
func (r *LogRecord) Timestamp() string { return r.values[3] }
func (r *LogRecord) RequestMethod() string { return r.values[4] }
func (r *LogRecord) RequestedURL() string { return r.values[5] }
func (r *LogRecord) HTTPStatus() string { return r.values[6] }
func (r *LogRecord) BytesSent() string { return r.values[7] }
func (r *LogRecord) Referrer() string { return r.values[8] }
func (r *LogRecord) UserAgent() string { return r.values[9] }
