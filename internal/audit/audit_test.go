package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (w *captureWriter) InsertAuditLog(_ context.Context, e Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.entries = append(w.entries, e)
	return nil
}

func (w *captureWriter) all() []Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Entry(nil), w.entries...)
}

type capturePublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *capturePublisher) Publish(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

func TestRecord_WritesBothSinks(t *testing.T) {
	writer := &captureWriter{}
	publisher := &capturePublisher{}
	log := NewLog(writer, publisher, nil)

	log.Record(context.Background(), Entry{
		Actor:        "buyer@example.com",
		Action:       ActionCreate,
		Message:      "order 00001 created",
		RelatedModel: "Order",
		RelatedID:    "00001",
	})

	require.Eventually(t, func() bool {
		return len(writer.all()) == 1 && publisher.count() == 1
	}, time.Second, 10*time.Millisecond)

	got := writer.all()[0]
	assert.NotEmpty(t, got.ID, "id is filled in")
	assert.False(t, got.CreatedAt.IsZero(), "timestamp is filled in")
	assert.Equal(t, ActionCreate, got.Action)
	assert.Equal(t, "buyer@example.com", got.Actor)
}

func TestRecord_WriterFailureDoesNotPanic(t *testing.T) {
	writer := &captureWriter{err: errors.New("db down")}
	publisher := &capturePublisher{}
	log := NewLog(writer, publisher, nil)

	log.Record(context.Background(), Entry{Action: ActionError, Message: "boom"})

	// The publish still happens even when the database write fails.
	require.Eventually(t, func() bool { return publisher.count() == 1 }, time.Second, 10*time.Millisecond)
	assert.Empty(t, writer.all())
}

func TestRecord_NilSinksAreSafe(t *testing.T) {
	log := NewLog(nil, nil, nil)

	assert.NotPanics(t, func() {
		log.Record(context.Background(), Entry{Action: ActionInfo, Message: "noop"})
	})
}

func TestRecord_KeepsCallerSuppliedID(t *testing.T) {
	writer := &captureWriter{}
	log := NewLog(writer, nil, nil)

	log.Record(context.Background(), Entry{ID: "fixed-id", Action: ActionUpdate})

	require.Eventually(t, func() bool { return len(writer.all()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "fixed-id", writer.all()[0].ID)
}
