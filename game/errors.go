package game

import "errors"

var (
	ErrNotYourTurn   = errors.New("not-your-turn")
	ErrEngineStopped = errors.New("engine-stopped")
)

var (
	ErrHubStopped     = errors.New("hub-stopped")
	ErrSendBufferFull = errors.New("send-buffer-full")
)

var (
	ErrMissingEventType = errors.New("missing event type")
	ErrMissingField     = errors.New("missing required field")
)
