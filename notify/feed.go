package notify

import (
	"bytes"
	"context"
	"time"

	"github.com/pkg/errors"
)

// Feed turns change events on a topic into snapshots, skipping snapshots equal to the last one
// sent.
type Feed struct {
	Hub   *Hub
	Topic string
	// Snapshot renders the current state.
	Snapshot func(ctx context.Context) ([]byte, error)
	// Keepalive is the idle interval after which Stream calls the keepalive callback; 0 disables it.
	Keepalive time.Duration
}

// Stream subscribes to the feed and calls send for every changed snapshot until ctx is done,
// the hub closes, or a callback fails.
//
// Arguments:
//   - ctx: Bounds the stream.
//   - send: Receives snapshots.
//   - keepalive: Called after Keepalive of inactivity, may be nil.
//
// Returns:
//   - error: nil when ctx is done or the hub closed, else the callback or snapshot error.
func (f *Feed) Stream(ctx context.Context, send func([]byte) error, keepalive func() error) error {
	events, cancel := f.Hub.Subscribe(f.Topic, DefaultBuffer)
	defer cancel()

	var tick <-chan time.Time
	if f.Keepalive > 0 && keepalive != nil {
		ticker := time.NewTicker(f.Keepalive)
		defer ticker.Stop()
		tick = ticker.C
	}

	var last []byte
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-events:
			if !ok {
				return nil
			}
			snapshot, err := f.Snapshot(ctx)
			if err != nil {
				return errors.Wrap(err, "rendering snapshot")
			}
			if last != nil && bytes.Equal(snapshot, last) {
				continue
			}
			last = snapshot
			if err := send(snapshot); err != nil {
				return err
			}
		case <-tick:
			if err := keepalive(); err != nil {
				return err
			}
		}
	}
}
