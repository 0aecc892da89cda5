// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Zkanalyze aggregates the logs of MPC and ZKP benchmark runs into a
// dataset.
//
// Usage:
//
//	zkanalyze [-config file] [-root dir] [-o file] [-format f] [-db driver:dsn] [-j n] [-chunk n] [-v]
//
// Zkanalyze reads the preprocess, compute and zkp log trees under the
// root directory, as described by the configuration (by default, the
// published experiments), and writes the aggregated dataset.
//
// The -format option selects the output encoding: json, msgpack, or
// benchfmt, the Go benchmark format read by benchstat. By default it
// is implied by the extension of the -o file, or json if writing to
// standard output.
//
// The -db option additionally stores the dataset in a SQL database,
// given as sqlite3:file or mysql:dsn. The upload ID is printed on
// standard error.
//
// Any missing or malformed log stops the run with exit status 1,
// naming the file and the pattern involved.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"github.com/compatcircuit/perf/aggregate"
	"github.com/compatcircuit/perf/config"
	"github.com/compatcircuit/perf/export"
	"github.com/compatcircuit/perf/storage/db"
	_ "github.com/compatcircuit/perf/storage/db/sqlite3"
)

var (
	flagConfig  = flag.String("config", "", "read the experiment configuration from `file`")
	flagRoot    = flag.String("root", "", "read logs from `dir` (overrides the configuration)")
	flagOutput  = flag.String("o", "exp_data.json", "write the dataset to `file` (- for standard output)")
	flagFormat  = flag.String("format", "", "write the dataset in `format` (json, msgpack, benchfmt)")
	flagDB      = flag.String("db", "", "also store the dataset in the database `driver:dsn`")
	flagLabel   = flag.String("label", "", "label the database upload with `text` (default: the root directory)")
	flagWorkers = flag.Int("j", 1, "collect up to `n` keys concurrently")
	flagChunk   = flag.Int("chunk", 0, "scan logs backward in chunks of `n` bytes (overrides the configuration)")
	flagVerbose = flag.Bool("v", false, "log every file read")
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: zkanalyze [flags]
`)
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 0 {
		flag.Usage()
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *flagVerbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := analyze(ctx); err != nil {
		log.Fatal().Err(err).Msg("zkanalyze failed")
	}
}

func analyze(ctx context.Context) error {
	cfg := config.Default()
	if *flagConfig != "" {
		var err error
		if cfg, err = config.Load(*flagConfig); err != nil {
			return err
		}
	}
	if *flagRoot != "" {
		cfg.Root = *flagRoot
	}
	if *flagChunk != 0 {
		cfg.ChunkSize = *flagChunk
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	format, err := outputFormat(*flagOutput, *flagFormat)
	if err != nil {
		return err
	}

	a := &aggregate.Aggregator{Config: cfg, Workers: *flagWorkers}
	if !*flagVerbose {
		bar := progressbar.Default(int64(a.Tasks()), "collecting")
		defer bar.Exit()
		a.Progress = func(stage string, key aggregate.Key) {
			bar.Describe(stage)
			bar.Add(1)
		}
	}
	start := time.Now()
	ds, err := a.Run(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("stages", len(ds.Stages)).Dur("elapsed", time.Since(start)).Msg("aggregated logs")

	if err := writeDataset(ds, *flagOutput, format); err != nil {
		return err
	}

	if *flagDB != "" {
		label := *flagLabel
		if label == "" {
			label = cfg.Root
		}
		id, err := store(ctx, *flagDB, label, ds)
		if err != nil {
			return err
		}
		log.Info().Str("upload", id).Str("label", label).Msg("stored dataset")
	}
	return nil
}

// outputFormat returns the format named by the -format flag, or else
// the one implied by the output file name.
func outputFormat(output, name string) (export.Format, error) {
	switch {
	case name != "":
		return export.FormatOf(name)
	case output == "-":
		return export.JSON, nil
	}
	return export.FormatOf(output)
}

func writeDataset(ds *aggregate.Dataset, output string, format export.Format) error {
	if output == "-" {
		return export.Write(os.Stdout, ds, format)
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := writeClose(f, ds, format); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	return nil
}

// writeClose writes ds to w and closes w, reporting the first error.
func writeClose(w io.WriteCloser, ds *aggregate.Dataset, format export.Format) (err error) {
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	return export.Write(w, ds, format)
}

// openDB opens the database named by source, of the form driver:dsn.
func openDB(source string) (*db.DB, error) {
	driver, dsn, ok := strings.Cut(source, ":")
	if !ok || driver == "" {
		return nil, errors.New("database must be given as driver:dsn")
	}
	return db.OpenSQL(driver, dsn)
}

func store(ctx context.Context, source, label string, ds *aggregate.Dataset) (string, error) {
	d, err := openDB(source)
	if err != nil {
		return "", fmt.Errorf("opening database: %w", err)
	}
	defer d.Close()
	return d.StoreDataset(ctx, label, ds)
}
