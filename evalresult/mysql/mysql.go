//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

// Package mysql provides a MySQL-backed result store so runs from different
// machines land in one queryable place.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	// Registers the "mysql" driver.
	_ "github.com/go-sql-driver/mysql"

	"trpc.group/trpc-go/finbot-eval/evalresult"
)

var _ evalresult.Manager = (*manager)(nil)

const defaultTable = "finbot_eval_runs"

const sqlCreateRunsTable = `CREATE TABLE IF NOT EXISTS %s (
  id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
  run_id VARCHAR(128) NOT NULL,
  suite_id VARCHAR(128) NOT NULL DEFAULT '',
  environment VARCHAR(64) NOT NULL DEFAULT '',
  summary JSON NULL,
  results JSON NOT NULL,
  run_info JSON NOT NULL,
  created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
  updated_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
  PRIMARY KEY (id),
  UNIQUE KEY uniq_run_id (run_id)
)`

type options struct {
	dsn         string
	table       string
	skipDBInit  bool
	initTimeout time.Duration
	openDB      func(dsn string) (*sql.DB, error)
}

// Option configures the MySQL result store.
type Option func(*options)

// WithDSN sets the MySQL data source name. Required.
func WithDSN(dsn string) Option {
	return func(o *options) { o.dsn = dsn }
}

// WithTable overrides the runs table name.
func WithTable(table string) Option {
	return func(o *options) { o.table = table }
}

// WithSkipDBInit skips schema creation, for deployments where the table is
// managed externally.
func WithSkipDBInit() Option {
	return func(o *options) { o.skipDBInit = true }
}

// WithDB injects an open database handle instead of dialing the DSN. Used by
// tests.
func WithDB(db *sql.DB) Option {
	return func(o *options) {
		o.openDB = func(string) (*sql.DB, error) { return db, nil }
	}
}

type manager struct {
	db    *sql.DB
	table string
}

// New creates a MySQL-backed run store, ensuring the schema unless skipped.
func New(opts ...Option) (evalresult.Manager, error) {
	o := options{
		table:       defaultTable,
		initTimeout: 10 * time.Second,
		openDB: func(dsn string) (*sql.DB, error) {
			return sql.Open("mysql", dsn)
		},
	}
	for _, opt := range opts {
		opt(&o)
	}
	db, err := o.openDB(o.dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	m := &manager{db: db, table: o.table}
	if !o.skipDBInit {
		ctx, cancel := context.WithTimeout(context.Background(), o.initTimeout)
		defer cancel()
		if _, err := db.ExecContext(ctx, fmt.Sprintf(sqlCreateRunsTable, o.table)); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init runs table %s: %w", o.table, err)
		}
	}
	return m, nil
}

// Save upserts the run record keyed by its run ID.
func (m *manager) Save(ctx context.Context, rec *evalresult.RunRecord) error {
	if rec == nil || rec.Info.RunID == "" {
		return errors.New("run record requires a run ID")
	}
	infoPayload, err := json.Marshal(rec.Info)
	if err != nil {
		return fmt.Errorf("marshal run info: %w", err)
	}
	summaryPayload, err := json.Marshal(rec.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	results := rec.Results
	if results == nil {
		results = []evalresult.TestRunResult{}
	}
	resultsPayload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (run_id, suite_id, environment, summary, results, run_info)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		   suite_id = VALUES(suite_id),
		   environment = VALUES(environment),
		   summary = VALUES(summary),
		   results = VALUES(results),
		   run_info = VALUES(run_info),
		   updated_at = CURRENT_TIMESTAMP(6)`,
		m.table,
	)
	if _, err := m.db.ExecContext(ctx, query,
		rec.Info.RunID, rec.Info.SuiteID, rec.Info.Environment,
		summaryPayload, resultsPayload, infoPayload); err != nil {
		return fmt.Errorf("store run %s: %w", rec.Info.RunID, err)
	}
	return nil
}

// Get loads one run record by its run ID.
func (m *manager) Get(ctx context.Context, runID string) (*evalresult.RunRecord, error) {
	if runID == "" {
		return nil, errors.New("run id is empty")
	}
	var (
		infoPayload    []byte
		summaryPayload sql.NullString
		resultsPayload []byte
	)
	query := fmt.Sprintf(
		"SELECT run_info, summary, results FROM %s WHERE run_id = ?", m.table)
	row := m.db.QueryRowContext(ctx, query, runID)
	if err := row.Scan(&infoPayload, &summaryPayload, &resultsPayload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %q not found", runID)
		}
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	rec := &evalresult.RunRecord{}
	if err := json.Unmarshal(infoPayload, &rec.Info); err != nil {
		return nil, fmt.Errorf("unmarshal run info %s: %w", runID, err)
	}
	if summaryPayload.Valid && summaryPayload.String != "" {
		if err := json.Unmarshal([]byte(summaryPayload.String), &rec.Summary); err != nil {
			return nil, fmt.Errorf("unmarshal summary %s: %w", runID, err)
		}
	}
	if err := json.Unmarshal(resultsPayload, &rec.Results); err != nil {
		return nil, fmt.Errorf("unmarshal results %s: %w", runID, err)
	}
	return rec, nil
}

// List returns stored run IDs, most recent first.
func (m *manager) List(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(
		"SELECT run_id FROM %s ORDER BY created_at DESC", m.table)
	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return ids, nil
}

// Close closes the underlying database handle.
func (m *manager) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}
