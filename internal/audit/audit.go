package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Action kinds mirror the append-only log consumed by the back office.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionCancel = "CANCEL"
	ActionError  = "ERROR"
	ActionInfo   = "INFO"
)

// Entry is one write-once audit record.
type Entry struct {
	ID           string    `json:"id"`
	Actor        string    `json:"actor"`
	Action       string    `json:"action"`
	Message      string    `json:"message"`
	RelatedModel string    `json:"related_model,omitempty"`
	RelatedID    string    `json:"related_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Recorder is fire-and-forget: Record never blocks on downstream failures and
// never fails the caller's transaction.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// Writer persists entries; implemented by the Postgres store.
type Writer interface {
	InsertAuditLog(ctx context.Context, e Entry) error
}

// Publisher fans entries out to the event bus; implemented by the Kafka
// producer.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Log records to the database and the event bus, best effort. Either sink may
// be nil.
type Log struct {
	writer    Writer
	publisher Publisher
	log       *zap.Logger
	timeout   time.Duration
}

func NewLog(writer Writer, publisher Publisher, log *zap.Logger) *Log {
	if log == nil {
		log = zap.NewNop()
	}
	return &Log{writer: writer, publisher: publisher, log: log, timeout: 5 * time.Second}
}

// Record fills in id and timestamp and writes the entry to both sinks in the
// background. Failures are logged and swallowed; the record is detached from
// the caller's context so an aborted request still leaves its trace.
func (l *Log) Record(_ context.Context, e Entry) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()

		if l.writer != nil {
			if err := l.writer.InsertAuditLog(ctx, e); err != nil {
				l.log.Warn("audit write failed", zap.String("audit_id", e.ID), zap.Error(err))
			}
		}
		if l.publisher != nil {
			if err := l.publisher.Publish(ctx, e.ID, e); err != nil {
				l.log.Warn("audit publish failed", zap.String("audit_id", e.ID), zap.Error(err))
			}
		}
	}()
}

// Nop discards every entry; used in tests.
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}
