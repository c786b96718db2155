package persist

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type presenceUpdate struct {
	userID string
	online bool
}

// PresenceWriter applies online/last-seen updates on its own goroutine so
// the game loop never waits on the database. Updates are fire-and-forget:
// a full queue or a failed write is logged and dropped.
type PresenceWriter struct {
	repo *UserRepo
	ch   chan presenceUpdate
	done chan struct{}
	log  *zap.Logger
}

func NewPresenceWriter(repo *UserRepo, queueSize int, log *zap.Logger) *PresenceWriter {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &PresenceWriter{
		repo: repo,
		ch:   make(chan presenceUpdate, queueSize),
		done: make(chan struct{}),
		log:  log,
	}
}

// Run consumes updates until ctx is cancelled, then drains what is queued so
// shutdown leaves everyone marked offline.
func (w *PresenceWriter) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case u := <-w.ch:
			w.apply(u)
		case <-ctx.Done():
			for {
				select {
				case u := <-w.ch:
					w.apply(u)
				default:
					return
				}
			}
		}
	}
}

// Wait blocks until Run has returned.
func (w *PresenceWriter) Wait() {
	<-w.done
}

// SetOnline enqueues a presence update. Never blocks.
func (w *PresenceWriter) SetOnline(userID string, online bool) {
	select {
	case w.ch <- presenceUpdate{userID: userID, online: online}:
	default:
		w.log.Warn("presence queue full, dropping update",
			zap.String("user", userID), zap.Bool("online", online))
	}
}

func (w *PresenceWriter) apply(u presenceUpdate) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.repo.SetOnline(ctx, u.userID, u.online); err != nil {
		w.log.Warn("presence write failed", zap.String("user", u.userID), zap.Error(err))
	}
}
