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

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/jackbister/accesslog2csv/internal/config"
	"github.com/jackbister/accesslog2csv/internal/dependencyinjection"
	"github.com/jackbister/accesslog2csv/internal/pipeline"
	"github.com/jackbister/accesslog2csv/internal/util"
	"go.uber.org/zap"
)

var versionString string // This must be set using -ldflags "-X main.versionString=<version>" when building for --version to work

func main() {
	flags := config.ParseCommandLine()
	if flags.PrintVersion {
		if versionString == "" {
			fmt.Println("(unknown version)")
			return
		}
		fmt.Println(versionString)
		return
	}

	logger, err := util.NewLogger(config.LogType(flags.LogType))
	if err != nil {
		log.Fatalf("error creating logger: %v\n", err)
	}
	logger = logger.With(zap.String("runId", uuid.NewString()))
	defer logger.Sync()

	cfg, err := flags.ToConfig(logger.Named("config"))
	if err != nil {
		logger.Fatal("error building configuration", zap.Error(err))
	}

	c, err := dependencyinjection.InjectionContextFromConfig(cfg, logger)
	if err != nil {
		logger.Fatal("error creating injection context", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var runErr error
	err = c.Invoke(func(d *pipeline.Driver) {
		stats, err := d.Run(ctx)
		runErr = err
		if err == nil || stats.LinesRead > 0 {
			fmt.Print(stats.Summary())
			fmt.Printf("Output available in: %s\n", cfg.OutputPath)
		}
	})
	if err != nil {
		logger.Fatal("error invoking pipeline", zap.Error(err))
	}
	if runErr != nil {
		logger.Fatal("run failed", zap.Error(runErr))
	}
}
