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

package config

type LogType string

const (
	LogTypeAuto        LogType = "auto"
	LogTypeProduction  LogType = "production"
	LogTypeDevelopment LogType = "development"
)

type Config struct {
	// InputPath is the gzip compressed access log to read. The default is "small-sample.log.gz"
	InputPath string

	// OutputPath is the CSV file to write. It is truncated if it exists. The default is "parsed_logs.csv"
	OutputPath string

	// UseCRLF makes the CSV rows end with \r\n instead of \n. The default is true
	UseCRLF bool

	// PreviewLength is the maximum number of characters of a malformed line that is included in the warning about it.
	// The default is 100
	PreviewLength int

	// MetricsFile is where the run counters are written in the Prometheus text format. Empty disables it.
	MetricsFile string

	LogType LogType
}

func Default() Config {
	return Config{
		InputPath:     "small-sample.log.gz",
		OutputPath:    "parsed_logs.csv",
		UseCRLF:       true,
		PreviewLength: 100,
		LogType:       LogTypeAuto,
	}
}
