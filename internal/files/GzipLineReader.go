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

package files

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// ErrInputNotFound is returned by OpenGzipLines when the input file does not exist.
var ErrInputNotFound = errors.New("input file not found")

const readBufferSize = 64 * 1024

// GzipLineReader reads a gzip compressed text file one line at a time.
// Byte sequences that are not valid UTF-8 are dropped from the decoded text.
type GzipLineReader struct {
	filename string

	file   *os.File
	gz     *gzip.Reader
	reader *bufio.Reader
}

// OpenGzipLines opens the file and reads the gzip header. Nothing beyond the header is read until Next is called.
func OpenGzipLines(filename string) (*GzipLineReader, error) {
	info, err := os.Stat(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, filename)
		}
		return nil, fmt.Errorf("error when checking input file=%s: %w", filename, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("input file=%s is a directory", filename)
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("error opening input file=%s: %w", filename, err)
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error reading gzip header of input file=%s: %w", filename, err)
	}
	dropInvalid := runes.Remove(runes.Predicate(func(r rune) bool {
		return r == utf8.RuneError
	}))
	return &GzipLineReader{
		filename: filename,
		file:     f,
		gz:       gz,
		reader:   bufio.NewReaderSize(transform.NewReader(gz, dropInvalid), readBufferSize),
	}, nil
}

// Next returns the next line without its trailing newline. It returns io.EOF once all lines have been read.
// The last line is returned even if the file does not end with a newline.
func (r *GzipLineReader) Next() (string, error) {
	line, err := r.reader.ReadString('\n')
	if err == io.EOF {
		if line == "" {
			return "", io.EOF
		}
		return line, nil
	}
	if err != nil {
		return "", fmt.Errorf("error reading from input file=%s: %w", r.filename, err)
	}
	return line[:len(line)-1], nil
}

func (r *GzipLineReader) Filename() string {
	return r.filename
}

// Close closes both the gzip stream and the underlying file.
func (r *GzipLineReader) Close() error {
	gzErr := r.gz.Close()
	fErr := r.file.Close()
	if fErr != nil {
		return fmt.Errorf("error closing input file=%s: %w", r.filename, fErr)
	}
	return gzErr
}
