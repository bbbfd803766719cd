/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package postgres implements the store port on PostgreSQL. Schema ownership
// (migrations) belongs to a collaborator; this package only assumes the
// tables and indices described in store.Store's contract.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/avast/retry-go"
	"github.com/lib/pq"
	"k8s.io/utils/clock"

	rotaerrors "github.com/gmesched/rota/pkg/errors"
	"github.com/gmesched/rota/pkg/store"
)

const uniqueViolation = "23505"

type Store struct {
	queries
	db *sql.DB
}

// Open connects and pings with retries; the database being briefly down at
// startup is the common case in the deployment this runs in.
func Open(ctx context.Context, url string, clk clock.Clock) (*Store, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, rotaerrors.Wrap(rotaerrors.KindUnavailable, err, "opening postgres")
	}
	err = retry.Do(func() error { return db.PingContext(ctx) },
		retry.Attempts(5),
		retry.Delay(500*time.Millisecond),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, rotaerrors.Wrap(rotaerrors.KindUnavailable, err, "pinging postgres")
	}
	return &Store{queries: queries{q: db, clock: clk}, db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// querier abstracts *sql.DB and *sql.Tx so the reader and writer queries are
// written once.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *Store) BeginTx(ctx context.Context) (store.Tx, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, rotaerrors.Wrap(rotaerrors.KindUnavailable, err, "beginning transaction")
	}
	return &tx{queries: queries{q: sqlTx, clock: s.clock}, tx: sqlTx}, nil
}

type tx struct {
	queries
	tx *sql.Tx
}

func (t *tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return rotaerrors.Wrap(rotaerrors.KindUnavailable, err, "committing transaction")
	}
	return nil
}

func (t *tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		return rotaerrors.Wrap(rotaerrors.KindUnavailable, err, "rolling back transaction")
	}
	return nil
}

// classify maps database errors onto the engine's error kinds.
func classify(err error, format string, args ...interface{}) error {
	if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
		return rotaerrors.Wrap(rotaerrors.KindConflict, err, format, args...)
	}
	if err == sql.ErrNoRows {
		return rotaerrors.Wrap(rotaerrors.KindNotFound, err, format, args...)
	}
	if err == context.DeadlineExceeded {
		return rotaerrors.Wrap(rotaerrors.KindTimeout, err, format, args...)
	}
	return rotaerrors.Wrap(rotaerrors.KindUnavailable, err, format, args...)
}
