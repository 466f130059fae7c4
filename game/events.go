package game

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Inbound event types.
const (
	TypeCreateRoom   = "create-room"
	TypeJoinRoom     = "join-room"
	TypeJoinRoomByID = "join-room-by-id"
	TypeLeaveRoom    = "leave-room"
	TypeRollResult   = "roll-result"
	TypeMessage      = "message"
	TypeRooms        = "rooms"
	TypeClients      = "clients"
	TypePing         = "ping"
)

// Outbound event types. message, rooms and clients reuse the inbound names.
const (
	TypeConnected   = "connected"
	TypeCreatedRoom = "created-room"
	TypeJoinedRoom  = "joined-room"
	TypeLeftRoom    = "left-room"
	TypeUserJoined  = "user-joined"
	TypeUserLeft    = "user-left"
	TypePulse       = "pulse"
	TypeContext     = "context"
	TypePong        = "pong"
	TypeError       = "error"
)

type inboundEvent struct {
	Type     string  `json:"type"`
	Passcode *string `json:"passcode"`
	ID       *string `json:"id"`
	Won      *int    `json:"won"`
	Lost     *int    `json:"lost"`
	Message  *string `json:"message"`
}

func parseInbound(frame []byte) (inboundEvent, error) {
	var ev inboundEvent
	if err := json.Unmarshal(frame, &ev); err != nil {
		return inboundEvent{}, err
	}
	if ev.Type == "" {
		return inboundEvent{}, ErrMissingEventType
	}

	var missing string
	switch ev.Type {
	case TypeJoinRoom:
		if ev.Passcode == nil {
			missing = "passcode"
		}
	case TypeJoinRoomByID:
		if ev.ID == nil {
			missing = "id"
		}
	case TypeRollResult:
		if ev.Won == nil {
			missing = "won"
		} else if ev.Lost == nil {
			missing = "lost"
		}
	case TypeMessage:
		if ev.Message == nil {
			missing = "message"
		}
	}
	if missing != "" {
		return inboundEvent{}, fmt.Errorf("%w %q for %s", ErrMissingField, missing, ev.Type)
	}
	return ev, nil
}

// Event is an outbound message. On the wire the payload fields sit next to
// "type" in a single flat object.
type Event struct {
	Type    string
	Payload any
}

func (e Event) MarshalJSON() ([]byte, error) {
	head, err := json.Marshal(struct {
		Type string `json:"type"`
	}{e.Type})
	if err != nil {
		return nil, err
	}
	if e.Payload == nil {
		return head, nil
	}

	body, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("payload of %s event is not an object", e.Type)
	}
	if len(body) == 2 {
		return head, nil
	}

	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head[:len(head)-1]...)
	out = append(out, ',')
	out = append(out, body[1:]...)
	return out, nil
}

// Delivery addresses one outbound event to one connection.
type Delivery struct {
	To    string
	Event Event
}

type ConnectedPayload struct {
	ClientID string   `json:"clientId"`
	Rooms    []string `json:"rooms"`
}

type CreatedRoomPayload struct {
	ID       string `json:"id"`
	Passcode string `json:"passcode"`
}

type JoinedRoomPayload struct {
	Clients  int    `json:"clients"`
	Passcode string `json:"passcode"`
	ID       string `json:"id"`
}

type LeftRoomPayload struct {
	Passcode string `json:"passcode"`
	ID       string `json:"id"`
}

// MembershipPayload is shared by user-joined and user-left.
type MembershipPayload struct {
	ClientID string `json:"clientId"`
	Clients  int    `json:"clients"`
}

type PulsePayload struct {
	Context Snapshot `json:"context"`
	Clients []string `json:"clients"`
}

type ContextPayload struct {
	State   Phase       `json:"state"`
	Context GameContext `json:"context"`
}

type MessagePayload struct {
	ClientID string `json:"clientId"`
	Message  string `json:"message"`
}

type RoomsPayload struct {
	Rooms []string `json:"rooms"`
}

type ClientsPayload struct {
	Clients []string `json:"clients"`
}

type PongPayload struct {
	ClientID string   `json:"clientId"`
	RoomID   string   `json:"roomId"`
	Clients  []string `json:"clients"`
}

type ErrorPayload struct {
	Message  string   `json:"message"`
	Passcode string   `json:"passcode,omitempty"`
	ID       string   `json:"id,omitempty"`
	Rooms    []string `json:"rooms,omitempty"`
}

func errorEvent(p ErrorPayload) Event {
	return Event{Type: TypeError, Payload: p}
}
