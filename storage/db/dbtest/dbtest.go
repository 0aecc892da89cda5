// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dbtest opens databases for tests of the db package and its
// users.
package dbtest

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"flag"
	"fmt"
	"testing"

	_ "github.com/go-sql-driver/mysql"

	"github.com/compatcircuit/perf/storage/db"
	_ "github.com/compatcircuit/perf/storage/db/sqlite3"
)

var mysqlServer = flag.String("mysql", "", "connect to the MySQL server at `dsn` (user:pass@tcp(host)/) instead of in-memory SQLite")

// createEmptyMySQLDB makes a new, empty database for the test.
func createEmptyMySQLDB(t *testing.T) (dsn string, cleanup func()) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		t.Fatal(err)
	}

	name := "zkperf-test-" + base64.RawURLEncoding.EncodeToString(buf)

	prefix := *mysqlServer

	db, err := sql.Open("mysql", prefix)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := db.Exec(fmt.Sprintf("CREATE DATABASE `%s`", name)); err != nil {
		db.Close()
		t.Fatal(err)
	}

	t.Logf("Using database %q", name)

	return prefix + name, func() {
		if _, err := db.Exec(fmt.Sprintf("DROP DATABASE `%s`", name)); err != nil {
			t.Error(err)
		}
		db.Close()
	}
}

// NewDB makes a connection to a testing database, either sqlite3 or
// MySQL depending on the -mysql flag. The database is closed when the
// test finishes.
func NewDB(t *testing.T) *db.DB {
	driverName, dataSourceName := "sqlite3", ":memory:"
	var serverCleanup func()
	if *mysqlServer != "" {
		driverName = "mysql"
		dataSourceName, serverCleanup = createEmptyMySQLDB(t)
	}
	d, err := db.OpenSQL(driverName, dataSourceName)
	if err != nil {
		if serverCleanup != nil {
			serverCleanup()
		}
		t.Fatalf("open database: %v", err)
	}

	t.Cleanup(func() {
		d.Close()
		if serverCleanup != nil {
			serverCleanup()
		}
	})
	// Make sure the database really is empty.
	uploads, err := d.CountUploads()
	if err != nil {
		t.Fatal(err)
	}
	if uploads != 0 {
		t.Fatalf("found %d row(s) in Uploads, want 0", uploads)
	}
	return d
}
