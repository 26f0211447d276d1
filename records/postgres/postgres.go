// Package postgres implements records.Store on PostgreSQL.
//
// Changes are observed with LISTEN on a channel fed by a table trigger, so mutations made by
// other processes reach subscribers too.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/nvr-ai/roi-detect/notify"
	"github.com/nvr-ai/roi-detect/records"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	minReconnect = 10 * time.Second
	maxReconnect = time.Minute
	// pingInterval matches the poll timeout of the listener loop.
	pingInterval = 90 * time.Second
)

// Store is a PostgreSQL backed records.Store.
type Store struct {
	db       *sql.DB
	listener *pq.Listener
	hub      *notify.Hub
	channel  string
	logger   *zap.SugaredLogger
	done     chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// Open connects to dsn, migrates the schema and starts listening on channel.
//
// Arguments:
//   - ctx: Bounds the connection check and migration.
//   - dsn: The connection string.
//   - channel: The LISTEN channel notified by the emails trigger.
//   - hub: Receives change events.
//   - logger: The logger; nil discards output.
//
// Returns:
//   - *Store: The store; Close stops the listener.
//   - error: An error if the database is unreachable or the migration fails.
func Open(ctx context.Context, dsn, channel string, hub *notify.Hub, logger *zap.SugaredLogger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening postgres")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "connecting to postgres")
	}
	if err := migrate(ctx, db, channel); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := newStore(db, dsn, channel, hub, logger)
	if err := s.listener.Listen(channel); err != nil {
		return nil, multierr.Combine(errors.Wrapf(err, "listening on %s", channel), s.listener.Close(), db.Close())
	}

	go s.forward()

	return s, nil
}

func newStore(db *sql.DB, dsn, channel string, hub *notify.Hub, logger *zap.SugaredLogger) *Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Store{db: db, hub: hub, channel: channel, logger: logger, done: make(chan struct{})}
	s.listener = pq.NewListener(dsn, minReconnect, maxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			s.logger.Warnw("postgres listener event", "event", ev, "error", err)
		}
	})
	return s
}

func migrate(ctx context.Context, db *sql.DB, channel string) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS emails (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL
		)`,
		fmt.Sprintf(`CREATE OR REPLACE FUNCTION notify_emails_changed() RETURNS trigger AS $$
		BEGIN
			PERFORM pg_notify(%s, TG_OP);
			RETURN NULL;
		END;
		$$ LANGUAGE plpgsql`, pq.QuoteLiteral(channel)),
		`DROP TRIGGER IF EXISTS emails_changed ON emails`,
		`CREATE TRIGGER emails_changed AFTER INSERT OR UPDATE OR DELETE ON emails
			FOR EACH STATEMENT EXECUTE FUNCTION notify_emails_changed()`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "migrating postgres schema")
		}
	}
	return nil
}

// forward relays notifications into the hub until Close.
func (s *Store) forward() {
	for {
		select {
		case <-s.done:
			return
		case n, ok := <-s.listener.Notify:
			if !ok {
				return
			}
			// A nil notification signals a reconnect; state may have changed meanwhile.
			op := "reconnect"
			if n != nil {
				op = n.Extra
			}
			s.hub.Publish(notify.Event{Topic: records.Topic, Data: []byte(op)})
		case <-time.After(pingInterval):
			if err := s.listener.Ping(); err != nil {
				s.logger.Warnw("postgres listener ping failed", "error", err)
			}
		}
	}
}

// List returns every record ordered by id.
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

// Create inserts e and returns it with the id assigned by the database.
func (s *Store) Create(ctx context.Context, e records.Email) (records.Email, error) {
	err := s.db.QueryRowContext(ctx,
		"INSERT INTO emails (name, email) VALUES ($1, $2) RETURNING id", e.Name, e.Email).Scan(&e.ID)
	return e, errors.Wrap(err, "inserting email")
}

// Update replaces the record with the given id, or returns records.ErrNotFound.
func (s *Store) Update(ctx context.Context, id int64, e records.Email) error {
	res, err := s.db.ExecContext(ctx, "UPDATE emails SET name = $1, email = $2 WHERE id = $3", e.Name, e.Email, id)
	if err != nil {
		return errors.Wrapf(err, "updating email %d", id)
	}
	return affected(res, id)
}

// Delete removes the record with the given id, or returns records.ErrNotFound.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM emails WHERE id = $1", id)
	if err != nil {
		return errors.Wrapf(err, "deleting email %d", id)
	}
	return affected(res, id)
}

// Close stops the listener and closes the pool. Later calls return the first result.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.closeErr = multierr.Combine(s.listener.Close(), s.db.Close())
	})
	return s.closeErr
}

func affected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	return records.RowsAffected(n, id)
}
