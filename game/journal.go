package game

import (
	"context"
	"sync"
	"time"

	"diceroom/domain"

	"github.com/rs/zerolog/log"
)

// RollJournal receives every roll submitted in any room. Record must never
// block the caller.
type RollJournal interface {
	Record(rec domain.RollRecord)
}

type RollRecorder interface {
	RecordRoll(ctx context.Context, rec domain.RollRecord) error
}

type NopJournal struct{}

func (NopJournal) Record(domain.RollRecord) {}

// AsyncJournal queues records and writes them from a single goroutine.
// Records that do not fit in the queue are dropped.
type AsyncJournal struct {
	recorder     RollRecorder
	queue        chan domain.RollRecord
	writeTimeout time.Duration
	closeOnce    sync.Once
	done         chan struct{}
}

func NewAsyncJournal(recorder RollRecorder, queueSize int, writeTimeout time.Duration) *AsyncJournal {
	return &AsyncJournal{
		recorder:     recorder,
		queue:        make(chan domain.RollRecord, queueSize),
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
	}
}

func (j *AsyncJournal) Record(rec domain.RollRecord) {
	select {
	case j.queue <- rec:
	default:
		log.Warn().Str("room", rec.RoomID).Str("client", rec.ClientID).Msg("roll journal queue full, dropping record")
	}
}

// Run writes queued records until Close is called and the queue is drained.
func (j *AsyncJournal) Run() {
	defer close(j.done)
	for rec := range j.queue {
		ctx, cancel := context.WithTimeout(context.Background(), j.writeTimeout)
		if err := j.recorder.RecordRoll(ctx, rec); err != nil {
			log.Error().Err(err).Str("room", rec.RoomID).Msg("failed to journal roll")
		}
		cancel()
	}
}

// Close stops accepting records and waits for Run to drain the queue or for
// ctx to end. Record must not be called after Close.
func (j *AsyncJournal) Close(ctx context.Context) error {
	j.closeOnce.Do(func() { close(j.queue) })
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
