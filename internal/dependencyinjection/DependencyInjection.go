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

package dependencyinjection

import (
	"github.com/jackbister/accesslog2csv/internal/config"
	"github.com/jackbister/accesslog2csv/internal/metrics"
	"github.com/jackbister/accesslog2csv/internal/parser"
	"github.com/jackbister/accesslog2csv/internal/pipeline"

	"go.uber.org/dig"
	"go.uber.org/zap"
)

func InjectionContextFromConfig(cfg *config.Config, logger *zap.Logger) (*dig.Container, error) {
	c := dig.New()
	err := provideBasics(c, cfg, logger)
	if err != nil {
		return nil, err
	}
	err = c.Provide(func() parser.LineParser {
		return parser.NewAccessLogParser()
	})
	if err != nil {
		return nil, err
	}
	err = c.Provide(metrics.NewRunStats)
	if err != nil {
		return nil, err
	}
	err = c.Provide(func(p struct {
		dig.In

		Cfg    *config.Config
		Parser parser.LineParser
		Stats  *metrics.RunStats
		Logger *zap.Logger
	}) *pipeline.Driver {
		return pipeline.NewDriver(p.Cfg, p.Parser, p.Stats, p.Logger.Named("Driver"))
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func provideBasics(c *dig.Container, cfg *config.Config, logger *zap.Logger) error {
	err := c.Provide(func() *zap.Logger {
		return logger
	})
	if err != nil {
		return err
	}
	err = c.Provide(func() *config.Config {
		return cfg
	})
	if err != nil {
		return err
	}
	return nil
}
