// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package db stores aggregated datasets in a SQL database.
//
// Each stored dataset is an upload: a labeled row in the Uploads
// table plus one Measurements row per value of the dataset's flat
// form (see aggregate.Dataset.Measurements).
package db

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/compatcircuit/perf/aggregate"
	"github.com/rs/zerolog/log"
)

// DB is a high-level interface to a dataset database. It's safe for
// concurrent use by multiple goroutines.
type DB struct {
	sql *sql.DB // underlying database connection
	// prepared statements
	insertUpload *sql.Stmt
	countUploads *sql.Stmt
}

// ErrNoUpload is returned by LoadDataset when no upload has the
// requested ID.
var ErrNoUpload = errors.New("upload not found")

// OpenSQL creates a DB backed by a SQL database. The parameters are
// the same as the parameters for sql.Open. Only mysql and sqlite3 are
// explicitly supported; other database engines will receive MySQL
// query syntax which may or may not be compatible.
func OpenSQL(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if hook := openHooks[driverName]; hook != nil {
		if err := hook(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	d := &DB{sql: db}
	if err := d.createTables(driverName); err != nil {
		db.Close()
		return nil, err
	}
	if err := d.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

var openHooks = make(map[string]func(*sql.DB) error)

// RegisterOpenHook registers a hook to be called after opening a connection to driverName.
// This is used by the sqlite3 package to configure its connections.
// It must be called from an init function.
func RegisterOpenHook(driverName string, hook func(*sql.DB) error) {
	openHooks[driverName] = hook
}

// createTmpl is the template used to prepare the CREATE statements
// for the database. It is evaluated with . as a map containing one
// entry whose key is the driver name.
var createTmpl = template.Must(template.New("create").Parse(`
CREATE TABLE IF NOT EXISTS Uploads (
	UploadID {{if .sqlite3}}INTEGER PRIMARY KEY AUTOINCREMENT{{else}}SERIAL PRIMARY KEY AUTO_INCREMENT{{end}},
	Label VARCHAR(255) NOT NULL
);
CREATE TABLE IF NOT EXISTS Measurements (
	UploadID BIGINT UNSIGNED,
	RecordID BIGINT UNSIGNED,
	Stage VARCHAR(255) NOT NULL,
	Setup VARCHAR(255) NOT NULL,
	Instance VARCHAR(255) NOT NULL,
	Metric VARCHAR(64) NOT NULL,
	Circuit VARCHAR(255) NOT NULL,
	Method VARCHAR(255) NOT NULL,
	Retry INT NOT NULL,
	Value DOUBLE NOT NULL,
	PRIMARY KEY (UploadID, RecordID),
{{if not .sqlite3}}
	Index (Stage(100), Setup(100), Instance(100)),
{{end}}
	FOREIGN KEY (UploadID) REFERENCES Uploads(UploadID) ON UPDATE CASCADE ON DELETE CASCADE
);
{{if .sqlite3}}
CREATE INDEX IF NOT EXISTS MeasurementsStageKey ON Measurements(Stage, Setup, Instance);
{{end}}
`))

// createTables creates any missing tables on the connection in
// db.sql. driverName is the same driver name passed to sql.Open and
// is used to select the correct syntax.
func (db *DB) createTables(driverName string) error {
	var buf bytes.Buffer
	if err := createTmpl.Execute(&buf, map[string]bool{driverName: true}); err != nil {
		return err
	}
	for _, q := range strings.Split(buf.String(), ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.sql.Exec(q); err != nil {
			return fmt.Errorf("create table: %v", err)
		}
	}
	return nil
}

// prepareStatements calls db.sql.Prepare on reusable SQL statements.
func (db *DB) prepareStatements() error {
	var err error
	db.insertUpload, err = db.sql.Prepare("INSERT INTO Uploads(Label) VALUES (?)")
	if err != nil {
		return err
	}
	db.countUploads, err = db.sql.Prepare("SELECT COUNT(*) FROM Uploads")
	if err != nil {
		return err
	}
	return nil
}

// insertBatch is the number of measurements written per INSERT
// statement.
const insertBatch = 100

// An Upload describes one stored dataset.
type Upload struct {
	ID    string
	Label string
}

// StoreDataset stores ds as a new upload with the given label and
// returns the upload's ID. The upload is written in one transaction.
func (db *DB) StoreDataset(ctx context.Context, label string, ds *aggregate.Dataset) (uploadID string, err error) {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	res, err := tx.StmtContext(ctx, db.insertUpload).ExecContext(ctx, label)
	if err != nil {
		return "", err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", err
	}

	ms := ds.Measurements()
	for start := 0; start < len(ms); start += insertBatch {
		end := min(start+insertBatch, len(ms))
		args := make([]any, 0, (end-start)*10)
		for i, m := range ms[start:end] {
			key, err := aggregate.ParseKey(m.Key)
			if err != nil {
				return "", fmt.Errorf("stage %s: %w", m.Stage, err)
			}
			args = append(args, id, start+i, m.Stage, key.Setup, key.Instance, m.Metric, m.Circuit, m.Method, m.Retry, m.Value)
		}
		query := "INSERT INTO Measurements VALUES " + strings.Repeat("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?), ", end-start)
		query = strings.TrimSuffix(query, ", ")
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return "", err
		}
	}
	log.Debug().Int64("upload", id).Str("label", label).Int("measurements", len(ms)).Msg("stored dataset")
	return strconv.FormatInt(id, 10), nil
}

// LoadDataset returns the dataset stored under uploadID.
func (db *DB) LoadDataset(ctx context.Context, uploadID string) (*aggregate.Dataset, error) {
	id, err := strconv.ParseInt(uploadID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("upload %q: %w", uploadID, ErrNoUpload)
	}
	var label string
	err = db.sql.QueryRowContext(ctx, "SELECT Label FROM Uploads WHERE UploadID = ?", id).Scan(&label)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("upload %q: %w", uploadID, ErrNoUpload)
	} else if err != nil {
		return nil, err
	}

	rows, err := db.sql.QueryContext(ctx, "SELECT Stage, Setup, Instance, Metric, Circuit, Method, Retry, Value FROM Measurements WHERE UploadID = ? ORDER BY RecordID", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ms []aggregate.Measurement
	for rows.Next() {
		var m aggregate.Measurement
		var key aggregate.Key
		if err := rows.Scan(&m.Stage, &key.Setup, &key.Instance, &m.Metric, &m.Circuit, &m.Method, &m.Retry, &m.Value); err != nil {
			return nil, err
		}
		m.Key = key.String()
		ms = append(ms, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	ds, err := aggregate.FromMeasurements(ms)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", uploadID, err)
	}
	return ds, nil
}

// ListUploads returns the stored uploads in the order they were
// stored.
func (db *DB) ListUploads(ctx context.Context) ([]Upload, error) {
	rows, err := db.sql.QueryContext(ctx, "SELECT UploadID, Label FROM Uploads ORDER BY UploadID")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ups []Upload
	for rows.Next() {
		var id int64
		var u Upload
		if err := rows.Scan(&id, &u.Label); err != nil {
			return nil, err
		}
		u.ID = strconv.FormatInt(id, 10)
		ups = append(ups, u)
	}
	return ups, rows.Err()
}

// CountUploads returns the number of uploads in the database.
func (db *DB) CountUploads() (int, error) {
	var uploads int
	err := db.countUploads.QueryRow().Scan(&uploads)
	return uploads, err
}

// Close closes the database connections, releasing any open resources.
func (db *DB) Close() error {
	if err := db.insertUpload.Close(); err != nil {
		return err
	}
	if err := db.countUploads.Close(); err != nil {
		return err
	}
	return db.sql.Close()
}
