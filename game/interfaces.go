package game

import (
	"context"
	"time"

	"diceroom/domain"
)

type WebsocketConnection interface {
	Close(reason string)
	Write(data []byte) error
	Read() ([]byte, error)
	Ping() error
}

type PeriodicTickerChannelCreator interface {
	Create(duration time.Duration) <-chan time.Time
}

type RollHistory interface {
	ListRolls(ctx context.Context, roomID string, limit int) ([]domain.RollRecord, error)
}
