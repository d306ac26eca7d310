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

package util

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/jackbister/accesslog2csv/internal/config"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
)

// NewLogger creates the root logger. LogTypeAuto selects the development logger when stderr is a terminal.
func NewLogger(logType config.LogType) (*zap.Logger, error) {
	if logType == config.LogTypeAuto {
		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			logType = config.LogTypeDevelopment
		} else {
			logType = config.LogTypeProduction
		}
	}
	var zapCfg zap.Config
	switch logType {
	case config.LogTypeDevelopment:
		zapCfg = zap.NewDevelopmentConfig()
	case config.LogTypeProduction:
		zapCfg = zap.NewProductionConfig()
		// a malformed log can produce one warning per line
		zapCfg.Sampling = nil
	default:
		return nil, fmt.Errorf("unknown logType '%s'", logType)
	}
	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("error building logger: %w", err)
	}
	return logger, nil
}

// Preview returns at most maxChars characters of s, followed by "..." if s was cut.
func Preview(s string, maxChars int) string {
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	n := 0
	for i := range s {
		if n == maxChars {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
