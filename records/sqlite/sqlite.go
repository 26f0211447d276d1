// Package sqlite implements records.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/nvr-ai/roi-detect/notify"
	"github.com/nvr-ai/roi-detect/records"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS emails (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL
);`

// Store is a SQLite backed records.Store. Mutations publish on the hub after they commit.
type Store struct {
	db     *sql.DB
	hub    *notify.Hub
	logger *zap.SugaredLogger
}

// Open opens or creates the database at path and migrates it.
//
// Arguments:
//   - path: A file path or ":memory:".
//   - hub: Receives change events, may be nil.
//   - logger: The logger.
//
// Returns:
//   - *Store: The store.
//   - error: An error if the database cannot be opened or migrated.
func Open(path string, hub *notify.Hub, logger *zap.SugaredLogger) (*Store, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening sqlite database")
	}

	// A single connection serializes writers and keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "migrating sqlite database")
	}

	return &Store{db: db, hub: hub, logger: logger}, nil
}

func (s *Store) List(ctx context.Context) ([]records.Email, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, email FROM emails ORDER BY id")
	if err != nil {
		return nil, errors.Wrap(err, "listing emails")
	}
	defer rows.Close()

	out := []records.Email{}
	for rows.Next() {
		var e records.Email
		if err := rows.Scan(&e.ID, &e.Name, &e.Email); err != nil {
			return nil, errors.Wrap(err, "scanning email")
		}
		out = append(out, e)
	}
	return out, errors.Wrap(rows.Err(), "listing emails")
}

func (s *Store) Create(ctx context.Context, e records.Email) (records.Email, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO emails (name, email) VALUES (?, ?)", e.Name, e.Email)
	if err != nil {
		return e, errors.Wrap(err, "inserting email")
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return e, errors.Wrap(err, "reading inserted id")
	}
	s.changed("insert")
	return e, nil
}

func (s *Store) Update(ctx context.Context, id int64, e records.Email) error {
	res, err := s.db.ExecContext(ctx, "UPDATE emails SET name = ?, email = ? WHERE id = ?", e.Name, e.Email, id)
	if err != nil {
		return errors.Wrapf(err, "updating email %d", id)
	}
	return s.affected(res, id, "update")
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM emails WHERE id = ?", id)
	if err != nil {
		return errors.Wrapf(err, "deleting email %d", id)
	}
	return s.affected(res, id, "delete")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) affected(res sql.Result, id int64, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if err := records.RowsAffected(n, id); err != nil {
		return err
	}
	s.changed(op)
	return nil
}

func (s *Store) changed(op string) {
	if s.hub == nil {
		return
	}
	n := s.hub.Publish(notify.Event{Topic: records.Topic, Data: []byte(op)})
	s.logger.Debugw("emails changed", "op", op, "subscribers", n)
}
