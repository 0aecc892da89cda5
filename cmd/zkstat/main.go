// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Zkstat summarizes an aggregated benchmark dataset.
//
// Usage:
//
//	zkstat [-format f] [-bandwidth] file
//	zkstat -db driver:dsn [-bandwidth] [uploadid]
//
// For every stage of the dataset, zkstat prints the number of
// retries and the mean, spread, minimum, maximum and standard
// deviation of each series, by key and method. The spread is the
// standard deviation as a percentage of the mean.
//
// The dataset is read from a file written by zkanalyze in json or
// msgpack format (by default implied by the file's extension), or,
// with -db, from a database upload. Without an upload ID, zkstat
// lists the database's uploads.
//
// The -bandwidth option instead prints the per-party bandwidth of each
// stage, pooled over all instances and circuits of each setup, and
// over the whole stage in the row "all".
//
// Series with too few values for a spread are marked with a number
// referring to a note under the table.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/compatcircuit/perf/aggregate"
	"github.com/compatcircuit/perf/export"
	"github.com/compatcircuit/perf/storage/db"
	_ "github.com/compatcircuit/perf/storage/db/sqlite3"
)

var (
	flagFormat    = flag.String("format", "", "read the dataset in `format` (json, msgpack)")
	flagDB        = flag.String("db", "", "read the dataset from the database `driver:dsn`")
	flagBandwidth = flag.Bool("bandwidth", false, "print pooled bandwidth by setup")
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: zkstat [flags] file
       zkstat -db driver:dsn [flags] [uploadid]
`)
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	flag.Usage = usage
	flag.Parse()

	ctx := context.Background()
	var ds *aggregate.Dataset
	var err error
	switch {
	case *flagDB != "" && flag.NArg() == 0:
		err = listUploads(ctx, *flagDB)
		if err == nil {
			return
		}
	case *flagDB != "" && flag.NArg() == 1:
		ds, err = loadUpload(ctx, *flagDB, flag.Arg(0))
	case *flagDB == "" && flag.NArg() == 1:
		ds, err = loadFile(flag.Arg(0), *flagFormat)
	default:
		flag.Usage()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("zkstat failed")
	}
	if err := printStats(os.Stdout, ds, *flagBandwidth); err != nil {
		log.Fatal().Err(err).Msg("zkstat failed")
	}
}

func loadFile(name, formatName string) (*aggregate.Dataset, error) {
	if formatName == "" {
		formatName = name
	}
	format, err := export.FormatOf(formatName)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return export.Read(f, format)
}

func openDB(source string) (*db.DB, error) {
	driver, dsn, ok := strings.Cut(source, ":")
	if !ok || driver == "" {
		return nil, errors.New("database must be given as driver:dsn")
	}
	return db.OpenSQL(driver, dsn)
}

func loadUpload(ctx context.Context, source, id string) (*aggregate.Dataset, error) {
	d, err := openDB(source)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	return d.LoadDataset(ctx, id)
}

func listUploads(ctx context.Context, source string) error {
	d, err := openDB(source)
	if err != nil {
		return err
	}
	defer d.Close()
	ups, err := d.ListUploads(ctx)
	if err != nil {
		return err
	}
	for _, u := range ups {
		fmt.Printf("%s\t%s\n", u.ID, u.Label)
	}
	return nil
}
