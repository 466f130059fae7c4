package game

import (
	"errors"
	"slices"
	"time"

	"diceroom/domain"

	"github.com/rs/zerolog/log"
)

// Conn is the dispatcher's record of one connected client: a stable id, the
// means to address events to it, and the room it currently sits in.
type Conn struct {
	id   string
	room *Room
	send func(Event)
}

func NewConn(id string, send func(Event)) *Conn {
	return &Conn{id: id, send: send}
}

func (c *Conn) ID() string {
	return c.id
}

// RoomID is empty when the connection is not in a room.
func (c *Conn) RoomID() string {
	if c.room == nil {
		return ""
	}
	return c.room.id
}

func (c *Conn) Send(ev Event) {
	c.send(ev)
}

type Room struct {
	id       string
	passcode string
	members  map[string]*Conn
	engine   *Engine
	journal  RollJournal
	now      func() time.Time
}

func NewRoom(passcode string, initialScore int, journal RollJournal) *Room {
	if journal == nil {
		journal = NopJournal{}
	}
	room := &Room{
		id:       RoomIDFromPasscode(passcode),
		passcode: passcode,
		members:  make(map[string]*Conn),
		engine:   NewEngine(initialScore),
		journal:  journal,
		now:      time.Now,
	}
	room.engine.Subscribe(room.broadcastContext)
	log.Info().Str("room", room.id).Msg("new room")
	log.Debug().Str("room", room.id).Str("passcode", passcode).Msg("room passcode")
	return room
}

func (r *Room) ID() string {
	return r.id
}

func (r *Room) Passcode() string {
	return r.passcode
}

func (r *Room) Size() int {
	return len(r.members)
}

func (r *Room) Engine() *Engine {
	return r.engine
}

func (r *Room) Has(connID string) bool {
	_, ok := r.members[connID]
	return ok
}

// MemberIDs returns the ids of the current members in a stable order.
func (r *Room) MemberIDs() []string {
	ids := make([]string, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *Room) Join(conn *Conn) {
	if _, ok := r.members[conn.id]; ok {
		r.members[conn.id] = conn
		conn.Send(r.joinedEvent())
		r.pulse(conn)
		log.Debug().Str("room", r.id).Str("client", conn.id).Msg("client rejoined room")
		return
	}

	r.members[conn.id] = conn
	conn.Send(r.joinedEvent())
	r.Broadcast(Event{Type: TypeUserJoined, Payload: MembershipPayload{
		ClientID: conn.id,
		Clients:  len(r.members),
	}}, conn.id)
	r.pulse(conn)
	r.feed(Input{Type: InputJoin, ClientID: conn.id})

	log.Info().Str("room", r.id).Str("client", conn.id).Int("clients", len(r.members)).Msg("joined room")
}

func (r *Room) Leave(connID string) {
	conn, ok := r.members[connID]
	if !ok {
		return
	}

	r.feed(Input{Type: InputLeave, ClientID: connID})
	delete(r.members, connID)
	conn.Send(Event{Type: TypeLeftRoom, Payload: LeftRoomPayload{Passcode: r.passcode, ID: r.id}})
	r.Broadcast(Event{Type: TypeUserLeft, Payload: MembershipPayload{
		ClientID: connID,
		Clients:  len(r.members),
	}}, connID)

	log.Info().Str("room", r.id).Str("client", connID).Int("clients", len(r.members)).Msg("left room")
}

// Broadcast sends ev to every member except the one whose id is except.
// Pass an empty except to reach everyone.
func (r *Room) Broadcast(ev Event, except string) {
	for _, id := range r.MemberIDs() {
		if id == except {
			continue
		}
		r.members[id].Send(ev)
	}
}

// SubmitRollResult hands a roll to the engine, which alone decides whether it
// counts. Every submission is journaled.
func (r *Room) SubmitRollResult(connID string, won, lost int) {
	err := r.engine.Send(Input{Type: InputRollResult, ClientID: connID, Won: won, Lost: lost})

	switch {
	case err == nil:
	case errors.Is(err, ErrNotYourTurn):
		log.Debug().
			Str("room", r.id).
			Str("client", connID).
			Str("currentPlayer", r.engine.Snapshot().Context.CurrentPlayer).
			Msg("not your turn")
	default:
		log.Warn().Err(err).Str("room", r.id).Str("client", connID).Msg("roll result not applied")
		return
	}

	r.journal.Record(domain.RollRecord{
		RoomID:     r.id,
		ClientID:   connID,
		Won:        won,
		Lost:       lost,
		Accepted:   err == nil,
		RecordedAt: r.now(),
	})
}

// Close stops the engine before forgetting the members, so nothing can be
// broadcast on behalf of a destroyed room.
func (r *Room) Close() {
	r.engine.Stop()
	clear(r.members)
}

func (r *Room) feed(in Input) {
	if err := r.engine.Send(in); err != nil {
		log.Warn().Err(err).Str("room", r.id).Str("input", string(in.Type)).Msg("engine rejected input")
	}
}

func (r *Room) joinedEvent() Event {
	return Event{Type: TypeJoinedRoom, Payload: JoinedRoomPayload{
		Clients:  len(r.members),
		Passcode: r.passcode,
		ID:       r.id,
	}}
}

func (r *Room) pulse(conn *Conn) {
	conn.Send(Event{Type: TypePulse, Payload: PulsePayload{
		Context: r.engine.Snapshot(),
		Clients: r.MemberIDs(),
	}})
}

func (r *Room) broadcastContext(s Snapshot) {
	r.Broadcast(Event{Type: TypeContext, Payload: ContextPayload{
		State:   s.Phase,
		Context: s.Context,
	}}, "")
}
