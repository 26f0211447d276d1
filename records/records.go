// Package records stores the notification e-mail addresses managed through the HTTP API.
package records

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// Topic is the notify topic on which stores announce changes.
const Topic = "emails"

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// Email is one stored address.
type Email struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Validate checks the fields a client must supply.
func (e Email) Validate() error {
	if strings.TrimSpace(e.Email) == "" {
		return errors.New("email is required")
	}
	if !strings.Contains(e.Email, "@") {
		return errors.Errorf("invalid email %q", e.Email)
	}
	return nil
}

// Store persists e-mail records. Implementations announce every mutation on Topic.
type Store interface {
	// List returns all records ordered by id.
	List(ctx context.Context) ([]Email, error)
	// Create inserts a record and returns it with its id.
	Create(ctx context.Context, e Email) (Email, error)
	// Update replaces name and email of record id.
	Update(ctx context.Context, id int64, e Email) error
	// Delete removes record id.
	Delete(ctx context.Context, id int64) error
	Close() error
}

// RowsAffected maps a zero-row mutation onto ErrNotFound.
func RowsAffected(n int64, id int64) error {
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "id %d", id)
	}
	return nil
}
