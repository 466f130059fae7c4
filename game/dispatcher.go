package game

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Dispatcher routes inbound events of every connection to room lifecycle
// operations or to the connection's room. It is the only place rooms are
// created or destroyed.
//
// A Dispatcher is not safe for concurrent use. Each call runs to completion
// and returns the events it produced, addressed by connection id.
type Dispatcher struct {
	registry     *Registry
	conns        map[string]*Conn
	passcodes    PasscodeGenerator
	journal      RollJournal
	initialScore int
	pending      []Delivery
}

func NewDispatcher(registry *Registry, passcodes PasscodeGenerator, journal RollJournal, initialScore int) *Dispatcher {
	if journal == nil {
		journal = NopJournal{}
	}
	return &Dispatcher{
		registry:     registry,
		conns:        make(map[string]*Conn),
		passcodes:    passcodes,
		journal:      journal,
		initialScore: initialScore,
	}
}

// Connect registers a new connection and greets it with the current room list.
func (d *Dispatcher) Connect(connID string) []Delivery {
	conn := d.conn(connID)
	conn.Send(Event{Type: TypeConnected, Payload: ConnectedPayload{
		ClientID: connID,
		Rooms:    d.registry.IDs(),
	}})
	log.Info().Str("client", connID).Msg("connected")
	return d.flush()
}

// Handle processes one raw inbound frame from connID.
func (d *Dispatcher) Handle(connID string, frame []byte) []Delivery {
	conn := d.conn(connID)

	ev, err := parseInbound(frame)
	if err != nil {
		log.Debug().Err(err).Str("client", connID).Msg("malformed event")
		conn.Send(errorEvent(ErrorPayload{Message: err.Error()}))
		return d.flush()
	}

	switch ev.Type {
	case TypeCreateRoom:
		d.createRoom(conn)
	case TypeJoinRoom:
		d.joinRoomByCode(conn, *ev.Passcode)
	case TypeJoinRoomByID:
		d.joinRoomByID(conn, *ev.ID)
	case TypeLeaveRoom:
		d.leaveRoom(conn)
	case TypeRollResult:
		d.routeGameEvent(conn, *ev.Won, *ev.Lost)
	case TypeMessage:
		d.routeMessage(conn, *ev.Message)
	case TypeRooms:
		conn.Send(Event{Type: TypeRooms, Payload: RoomsPayload{Rooms: d.ListRooms()}})
	case TypeClients:
		d.clients(conn)
	case TypePing:
		d.ping(conn)
	default:
		conn.Send(errorEvent(ErrorPayload{Message: "Invalid event type"}))
	}
	return d.flush()
}

// Disconnect removes connID from its room, if any, and forgets it. It never
// reports errors to the connection.
func (d *Dispatcher) Disconnect(connID string) []Delivery {
	conn, ok := d.conns[connID]
	if !ok {
		return nil
	}
	if conn.room != nil {
		d.removeFromRoom(conn)
	}
	delete(d.conns, connID)
	log.Info().Str("client", connID).Msg("disconnected")

	// Nothing may be delivered to a closed connection.
	out := d.flush()
	kept := out[:0]
	for _, dl := range out {
		if dl.To != connID {
			kept = append(kept, dl)
		}
	}
	return kept
}

// ListRooms returns the ids of every live room.
func (d *Dispatcher) ListRooms() []string {
	return d.registry.IDs()
}

// Room looks up the room connID is currently in.
func (d *Dispatcher) Room(connID string) (*Room, bool) {
	conn, ok := d.conns[connID]
	if !ok || conn.room == nil {
		return nil, false
	}
	return conn.room, true
}

func (d *Dispatcher) createRoom(conn *Conn) {
	if conn.room != nil {
		d.leaveRoom(conn)
	}

	room := NewRoom(d.passcodes.Generate(), d.initialScore, d.journal)
	d.registry.Add(room)
	conn.room = room
	conn.Send(Event{Type: TypeCreatedRoom, Payload: CreatedRoomPayload{
		ID:       room.ID(),
		Passcode: room.Passcode(),
	}})
	log.Info().Str("room", room.ID()).Str("client", conn.id).Int("rooms", d.registry.Len()).Msg("created room")

	room.Join(conn)
}

func (d *Dispatcher) joinRoomByCode(conn *Conn, passcode string) {
	room, ok := d.registry.Get(RoomIDFromPasscode(NormalizePasscode(passcode)))
	if !ok {
		conn.Send(errorEvent(ErrorPayload{
			Message:  fmt.Sprintf("Room with passcode %s not found", passcode),
			Passcode: passcode,
		}))
		return
	}
	d.moveTo(conn, room)
}

func (d *Dispatcher) joinRoomByID(conn *Conn, roomID string) {
	room, ok := d.registry.Get(roomID)
	if !ok {
		conn.Send(errorEvent(ErrorPayload{
			Message: fmt.Sprintf("Room with id %s not found", roomID),
			ID:      roomID,
		}))
		return
	}
	d.moveTo(conn, room)
}

func (d *Dispatcher) moveTo(conn *Conn, room *Room) {
	if conn.room != nil && conn.room != room {
		d.leaveRoom(conn)
	}
	conn.room = room
	room.Join(conn)
}

func (d *Dispatcher) leaveRoom(conn *Conn) {
	if conn.room == nil {
		conn.Send(errorEvent(ErrorPayload{Message: "not in a room"}))
		return
	}
	d.removeFromRoom(conn)
}

func (d *Dispatcher) removeFromRoom(conn *Conn) {
	room := conn.room
	room.Leave(conn.id)
	conn.room = nil

	if room.Size() > 0 {
		return
	}
	room.Close()
	if d.registry.Remove(room) {
		log.Info().Str("room", room.ID()).Int("rooms", d.registry.Len()).Msg("deleted room")
	}
}

func (d *Dispatcher) routeGameEvent(conn *Conn, won, lost int) {
	if conn.room == nil {
		log.Debug().Str("client", conn.id).Msg("roll result outside of a room ignored")
		return
	}
	conn.room.SubmitRollResult(conn.id, won, lost)
}

func (d *Dispatcher) routeMessage(conn *Conn, text string) {
	if conn.room == nil {
		conn.Send(errorEvent(ErrorPayload{Message: "Not in a room", Rooms: d.ListRooms()}))
		return
	}
	log.Debug().Str("room", conn.room.ID()).Str("client", conn.id).Str("message", text).Msg("message")
	conn.room.Broadcast(Event{Type: TypeMessage, Payload: MessagePayload{
		ClientID: conn.id,
		Message:  text,
	}}, conn.id)
}

func (d *Dispatcher) clients(conn *Conn) {
	if conn.room == nil {
		conn.Send(errorEvent(ErrorPayload{Message: "Not in a room", Rooms: d.ListRooms()}))
		return
	}
	conn.Send(Event{Type: TypeClients, Payload: ClientsPayload{Clients: conn.room.MemberIDs()}})
}

func (d *Dispatcher) ping(conn *Conn) {
	clients := []string{}
	if conn.room != nil {
		clients = conn.room.MemberIDs()
	}
	conn.Send(Event{Type: TypePong, Payload: PongPayload{
		ClientID: conn.id,
		RoomID:   conn.RoomID(),
		Clients:  clients,
	}})
}

func (d *Dispatcher) conn(connID string) *Conn {
	if conn, ok := d.conns[connID]; ok {
		return conn
	}
	conn := NewConn(connID, func(ev Event) {
		d.pending = append(d.pending, Delivery{To: connID, Event: ev})
	})
	d.conns[connID] = conn
	return conn
}

func (d *Dispatcher) flush() []Delivery {
	out := d.pending
	d.pending = nil
	return out
}
