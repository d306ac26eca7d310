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

import (
	"errors"
	"flag"
	"io/fs"
	"os"

	"go.uber.org/zap"
)

type CommandLineFlags struct {
	CfgFile       string
	InputPath     string
	LogType       string
	MetricsFile   string
	OutputPath    string
	PreviewLength int
	PrintVersion  bool
	UseCRLF       bool

	// names of the flags that were given on the command line
	set map[string]bool
}

// ParseCommandLine parses os.Args using the default flag set. It exits the process if the flags are invalid.
func ParseCommandLine() *CommandLineFlags {
	ret, _ := parseCommandLine(flag.CommandLine, os.Args[1:])
	return ret
}

func parseCommandLine(flags *flag.FlagSet, args []string) (*CommandLineFlags, error) {
	defaults := Default()
	ret := CommandLineFlags{}
	flags.StringVar(&ret.CfgFile, "config", "", "The name of a JSON or YAML file containing the configuration. Files ending in .yaml or .yml are read as YAML. Flags given on the command line take precedence over the file.")
	flags.StringVar(&ret.InputPath, "input", defaults.InputPath, "The gzip compressed access log to parse.")
	flags.StringVar(&ret.LogType, "logType", string(defaults.LogType), "The type of logger to use. 'production' gives JSON logging and 'development' gives human readable logging. 'auto' uses 'development' if stderr is a terminal and 'production' otherwise.")
	flags.StringVar(&ret.MetricsFile, "metricsfile", defaults.MetricsFile, "If set, the counters of the run are written to this file in the Prometheus text format when the run is finished. Disabled by default.")
	flags.StringVar(&ret.OutputPath, "output", defaults.OutputPath, "The CSV file to write the parsed records to. The file is overwritten if it exists.")
	flags.IntVar(&ret.PreviewLength, "preview", defaults.PreviewLength, "The maximum number of characters of a malformed line to include in the warning about it.")
	flags.BoolVar(&ret.PrintVersion, "version", false, "Print version info and quit.")
	flags.BoolVar(&ret.UseCRLF, "crlf", defaults.UseCRLF, "End CSV rows with \\r\\n. If false, rows end with \\n.")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	ret.set = map[string]bool{}
	flags.Visit(func(f *flag.Flag) {
		ret.set[f.Name] = true
	})
	return &ret, nil
}

// ToConfig builds the configuration from the defaults, the config file if one was given and could be opened,
// and finally the flags that were explicitly given on the command line.
func (c *CommandLineFlags) ToConfig(logger *zap.Logger) (*Config, error) {
	cfg := Default()
	if c.CfgFile != "" {
		fromFile, err := FromFile(c.CfgFile, cfg)
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("could not open config file, will use command line configuration", zap.String("fileName", c.CfgFile))
		} else if err != nil {
			return nil, err
		} else {
			cfg = *fromFile
			logger.Info("using configuration from file", zap.String("fileName", c.CfgFile))
		}
	}
	if c.set["input"] {
		cfg.InputPath = c.InputPath
	}
	if c.set["output"] {
		cfg.OutputPath = c.OutputPath
	}
	if c.set["metricsfile"] {
		cfg.MetricsFile = c.MetricsFile
	}
	if c.set["preview"] {
		cfg.PreviewLength = c.PreviewLength
	}
	if c.set["crlf"] {
		cfg.UseCRLF = c.UseCRLF
	}
	cfg.LogType = LogType(c.LogType)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
