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

package output

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/jackbister/accesslog2csv/internal/parser"
)

// CsvRecordWriter writes LogRecords as rows of a CSV file. The first row is a header containing the column names.
type CsvRecordWriter struct {
	filename string
	columns  []string

	file *os.File
	w    *csv.Writer
}

// CreateCsv creates or truncates the file and writes the header row using parser.FieldNames as the columns.
func CreateCsv(filename string, useCRLF bool) (*CsvRecordWriter, error) {
	return CreateCsvWithColumns(filename, parser.FieldNames, useCRLF)
}

func CreateCsvWithColumns(filename string, columns []string, useCRLF bool) (*CsvRecordWriter, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("error creating output file=%s: %w", filename, err)
	}
	w := csv.NewWriter(f)
	w.UseCRLF = useCRLF
	cw := &CsvRecordWriter{
		filename: filename,
		columns:  columns,
		file:     f,
		w:        w,
	}
	err = w.Write(columns)
	if err == nil {
		w.Flush()
		err = w.Error()
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error writing header to output file=%s: %w", filename, err)
	}
	return cw, nil
}

// WriteRecord writes one row. Each column gets the record's value for the column name, or "" if the record has no such field.
// Rows are buffered, so an error writing to the file may be returned by a later call or by Close.
func (cw *CsvRecordWriter) WriteRecord(rec *parser.LogRecord) error {
	row := make([]string, len(cw.columns))
	for i, col := range cw.columns {
		row[i] = rec.Field(col)
	}
	if err := cw.w.Write(row); err != nil {
		return fmt.Errorf("error writing row to output file=%s: %w", cw.filename, err)
	}
	return nil
}

func (cw *CsvRecordWriter) Filename() string {
	return cw.filename
}

// Close flushes any buffered rows and closes the file.
func (cw *CsvRecordWriter) Close() error {
	cw.w.Flush()
	flushErr := cw.w.Error()
	closeErr := cw.file.Close()
	if flushErr != nil {
		return fmt.Errorf("error flushing output file=%s: %w", cw.filename, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("error closing output file=%s: %w", cw.filename, closeErr)
	}
	return nil
}
