// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sqlite3 provides the sqlite3 driver for
// github.com/compatcircuit/perf/storage/db.OpenSQL. It must be
// imported instead of go-sqlite3 to ensure foreign keys are
// properly honored.
package sqlite3

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/compatcircuit/perf/storage/db"
)

func init() {
	db.RegisterOpenHook("sqlite3", func(db *sql.DB) error {
		// The pragma is per connection, and each connection of an
		// in-memory database is a separate database, so hold a
		// single connection open.
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
		_, err := db.Exec("PRAGMA foreign_keys = ON")
		return err
	})
}
