package game

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Hub is the actor that owns the Dispatcher. Connects, frames and
// disconnects from every client are funneled through its channels and handled
// one at a time, so rooms and engines never see concurrent mutation.
type Hub struct {
	dispatcher    *Dispatcher
	clients       map[string]*Client
	registerChan  chan *Client
	removeChan    chan *Client
	frames        chan ClientFrame
	roomsReq      chan chan []string
	tickerCreator PeriodicTickerChannelCreator
	pingInterval  time.Duration
	stopOnce      sync.Once
	stopChan      chan struct{}
	done          chan struct{}
}

func NewHub(dispatcher *Dispatcher, tickerCreator PeriodicTickerChannelCreator, pingInterval time.Duration) *Hub {
	return &Hub{
		dispatcher:    dispatcher,
		clients:       make(map[string]*Client),
		registerChan:  make(chan *Client),
		removeChan:    make(chan *Client, 64),
		frames:        make(chan ClientFrame, 1024),
		roomsReq:      make(chan chan []string, 256),
		tickerCreator: tickerCreator,
		pingInterval:  pingInterval,
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Register hands a freshly connected client to the hub. The client's pumps
// must only be started once Register returns nil.
func (h *Hub) Register(ctx context.Context, c *Client) error {
	c.frames = h.frames
	c.removeMe = h.removeChan

	select {
	case h.registerChan <- c:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) ListRooms(ctx context.Context) ([]string, error) {
	respChan := make(chan []string, 1)
	select {
	case h.roomsReq <- respChan:
	case <-h.done:
		return nil, ErrHubStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case rooms := <-respChan:
		return rooms, nil
	case <-h.done:
		return nil, ErrHubStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop disconnects every client and ends Run. It waits until Run has
// returned or ctx is done.
func (h *Hub) Stop(ctx context.Context) error {
	h.stopOnce.Do(func() { close(h.stopChan) })
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) Run(started chan struct{}) {
	pingTicker := h.tickerCreator.Create(h.pingInterval)
	defer close(h.done)

	close(started)

	for {
		select {
		case <-pingTicker:
			for _, c := range h.clients {
				c.ping()
			}

		case c := <-h.registerChan:
			h.clients[c.id] = c
			h.deliver(h.dispatcher.Connect(c.id))

		case f := <-h.frames:
			h.handleFrame(f)

		case c := <-h.removeChan:
			h.remove(c)

		case req := <-h.roomsReq:
			req <- h.dispatcher.ListRooms()

		case <-h.stopChan:
			for _, c := range h.clients {
				h.remove(c)
			}
			log.Info().Msg("hub stopped")
			return
		}
	}
}

func (h *Hub) handleFrame(f ClientFrame) {
	c, ok := h.clients[f.from.id]
	if !ok || c != f.from {
		return
	}
	if c.limiter != nil && !c.limiter.Allow() {
		log.Debug().Str("client", c.ID()).Msg("rate limited")
		h.deliver([]Delivery{{To: c.id, Event: errorEvent(ErrorPayload{Message: "rate limited"})}})
		return
	}
	h.deliver(h.dispatcher.Handle(c.id, f.data))
}

func (h *Hub) remove(c *Client) {
	if current, ok := h.clients[c.id]; !ok || current != c {
		return
	}
	deliveries := h.dispatcher.Disconnect(c.id)
	delete(h.clients, c.id)
	c.release()
	h.deliver(deliveries)
}

func (h *Hub) deliver(deliveries []Delivery) {
	for _, dl := range deliveries {
		c, ok := h.clients[dl.To]
		if !ok {
			continue
		}
		data, err := json.Marshal(dl.Event)
		if err != nil {
			log.Error().Err(err).Str("type", dl.Event.Type).Msg("failed to marshal event")
			continue
		}
		if err := c.deliver(data); err != nil {
			log.Warn().Err(err).Str("client", c.ID()).Str("type", dl.Event.Type).Msg("dropping event")
		}
	}
}
