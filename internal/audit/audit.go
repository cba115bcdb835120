package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/taskpilot/chatbot/internal/directory"
	"github.com/taskpilot/chatbot/internal/models"
	"go.uber.org/zap"
)

// Sink writes audit records off the request's critical path. Failures are
// logged and dropped; a record that cannot be written never delays or fails
// the interaction it describes.
type Sink struct {
	dir     directory.Directory
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewSink(dir directory.Directory, logger *zap.Logger) *Sink {
	return &Sink{
		dir:     dir,
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// Record fires a detached write for the record, filling in id and timestamp.
func (s *Sink) Record(rec models.AuditRecord) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.dir.AppendAudit(ctx, rec); err != nil {
			s.logger.Error("Failed to write audit record",
				zap.Error(err),
				zap.String("actor_key", rec.ActorKey),
				zap.String("action_type", rec.ActionType))
		}
	}()
}

// Flush waits for in-flight writes. Used at shutdown and in tests.
func (s *Sink) Flush() {
	s.wg.Wait()
}
