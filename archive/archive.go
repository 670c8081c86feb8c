// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package archive mirrors beacon records into a SQLite database, one row per
// value.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/GermanBionicSystems/bevobeacon/beacon"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	timestamp TEXT NOT NULL,
	beacon TEXT NOT NULL,
	name TEXT NOT NULL,
	value REAL
);
CREATE INDEX IF NOT EXISTS readings_timestamp ON readings (timestamp);
`

// DB is a record archive. It implements beacon.Sink.
type DB struct {
	db     *sql.DB
	beacon string
}

// Open opens or creates the database at path. Records are stored for
// beaconID.
func Open(path, beaconID string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: %s: %w", path, err)
	}
	return &DB{db: db, beacon: beaconID}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) String() string {
	return "archive{" + d.beacon + "}"
}

// Write stores every value of rec. NaN is stored as NULL.
func (d *DB) Write(ctx context.Context, rec beacon.Record) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO readings (timestamp, beacon, name, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("archive: %w", err)
	}
	defer stmt.Close()
	ts := rec.Timestamp()
	for _, name := range rec.Columns() {
		v := sql.NullFloat64{Float64: rec.Values[name], Valid: !math.IsNaN(rec.Values[name])}
		if _, err := stmt.ExecContext(ctx, ts, d.beacon, name, v); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("archive: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

// Since returns the records of this beacon at or after t, oldest first.
func (d *DB) Since(ctx context.Context, t time.Time) ([]beacon.Record, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT timestamp, name, value
		FROM readings
		WHERE beacon = ? AND timestamp >= ?
		ORDER BY timestamp ASC, rowid ASC`,
		d.beacon, t.Format(beacon.TimeLayout))
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	defer rows.Close()

	var out []beacon.Record
	for rows.Next() {
		var ts, name string
		var v sql.NullFloat64
		if err := rows.Scan(&ts, &name, &v); err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].Timestamp() != ts {
			when, err := time.ParseInLocation(beacon.TimeLayout, ts, time.Local)
			if err != nil {
				return nil, fmt.Errorf("archive: %w", err)
			}
			out = append(out, beacon.Record{Time: when, Values: map[string]float64{}})
		}
		value := math.NaN()
		if v.Valid {
			value = v.Float64
		}
		out[len(out)-1].Values[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	return out, nil
}
