package game

import (
	"context"

	"golang.org/x/time/rate"
)

// ClientFrame is one raw inbound frame on its way to the hub.
type ClientFrame struct {
	from *Client
	data []byte
}

// Client owns the socket of one connection. ReadPump and WritePump each run
// on their own goroutine; everything else about the client belongs to the
// hub goroutine.
type Client struct {
	id        string
	socket    WebsocketConnection
	limiter   *rate.Limiter
	outbox    chan []byte
	pingChan  chan struct{}
	frames    chan<- ClientFrame
	removeMe  chan<- *Client
	ctx       context.Context
	cancelCtx context.CancelFunc
}

func NewClient(id string, socket WebsocketConnection, limiter *rate.Limiter, outboxSize int) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		id:        id,
		socket:    socket,
		limiter:   limiter,
		outbox:    make(chan []byte, outboxSize),
		pingChan:  make(chan struct{}, 1),
		ctx:       ctx,
		cancelCtx: cancel,
	}
}

func (c *Client) ID() string {
	return c.id
}

// ReadPump forwards every frame to the hub until the socket fails or the
// client is released, then asks the hub to remove the client.
func (c *Client) ReadPump() {
	defer c.socket.Close("")

	for {
		data, err := c.socket.Read()
		if err != nil {
			break
		}

		select {
		case c.frames <- ClientFrame{from: c, data: data}:
		case <-c.ctx.Done():
			return
		}
	}

	select {
	case c.removeMe <- c:
	case <-c.ctx.Done():
	}
}

// WritePump flushes the outbox and sends pings until the outbox is closed or
// a write fails. Events still buffered when the outbox closes are written
// before the socket is closed.
func (c *Client) WritePump() {
	for {
		select {
		case data, ok := <-c.outbox:
			if !ok {
				c.socket.Close("")
				return
			}
			if err := c.socket.Write(data); err != nil {
				return
			}
		case <-c.pingChan:
			if err := c.socket.Ping(); err != nil {
				return
			}
		}
	}
}

func (c *Client) deliver(data []byte) error {
	select {
	case c.outbox <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) ping() {
	select {
	case c.pingChan <- struct{}{}:
	default:
	}
}

// release is called once by the hub when the client is removed.
func (c *Client) release() {
	close(c.outbox)
	c.cancelCtx()
}
