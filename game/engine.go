package game

import (
	"maps"
	"slices"
)

type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseRolling  Phase = "rolling"
	PhaseNextTurn Phase = "nextTurn"
	PhaseEnd      Phase = "end"
)

type InputType string

const (
	InputJoin       InputType = "JOIN"
	InputLeave      InputType = "LEAVE"
	InputRollResult InputType = "ROLL_RESULT"
	InputNext       InputType = "NEXT"
	InputEnd        InputType = "END"
)

// Input is a single event fed to the turn engine. Won and Lost are only read
// for ROLL_RESULT.
type Input struct {
	Type     InputType
	ClientID string
	Won      int
	Lost     int
}

type GameContext struct {
	Players       []string       `json:"players"`
	CurrentPlayer string         `json:"currentPlayer"`
	Scores        map[string]int `json:"scores"`
}

type Snapshot struct {
	Phase   Phase       `json:"state"`
	Context GameContext `json:"context"`
}

func NewSnapshot() Snapshot {
	return Snapshot{
		Phase: PhaseWaiting,
		Context: GameContext{
			Players: []string{},
			Scores:  map[string]int{},
		},
	}
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{
		Phase: s.Phase,
		Context: GameContext{
			Players:       slices.Clone(s.Context.Players),
			CurrentPlayer: s.Context.CurrentPlayer,
			Scores:        maps.Clone(s.Context.Scores),
		},
	}
}

func (s Snapshot) equal(o Snapshot) bool {
	return s.Phase == o.Phase &&
		s.Context.CurrentPlayer == o.Context.CurrentPlayer &&
		slices.Equal(s.Context.Players, o.Context.Players) &&
		maps.Equal(s.Context.Scores, o.Context.Scores)
}

// Transition computes the snapshot that follows s after in. It never mutates
// s. ErrNotYourTurn is returned, together with an unchanged snapshot, when a
// roll result comes from anyone but the current player.
func Transition(s Snapshot, in Input, initialScore int) (Snapshot, error) {
	next := s.clone()

	if next.Phase == PhaseEnd {
		return next, nil
	}

	if in.Type == InputLeave {
		leave(&next.Context, in.ClientID)
		return settle(next), nil
	}

	switch next.Phase {
	case PhaseWaiting:
		if in.Type == InputJoin {
			join(&next.Context, in.ClientID, initialScore)
		}
	case PhaseRolling:
		if in.Type == InputRollResult {
			if in.ClientID != next.Context.CurrentPlayer {
				return s.clone(), ErrNotYourTurn
			}
			applyRoll(&next.Context, in.Won, in.Lost)
		}
	case PhaseNextTurn:
		switch in.Type {
		case InputNext:
			next = enter(next, PhaseRolling)
		case InputEnd:
			next.Phase = PhaseEnd
			return next, nil
		}
	}

	return settle(next), nil
}

// settle applies the automatic transitions that depend only on the number
// of players.
func settle(s Snapshot) Snapshot {
	switch {
	case s.Phase == PhaseWaiting && len(s.Context.Players) >= 2:
		return enter(s, PhaseRolling)
	case s.Phase == PhaseRolling && len(s.Context.Players) < 2:
		return enter(s, PhaseWaiting)
	}
	return s
}

func enter(s Snapshot, phase Phase) Snapshot {
	s.Phase = phase
	if phase == PhaseRolling && len(s.Context.Players) > 0 {
		s.Context.CurrentPlayer = s.Context.Players[0]
	}
	return s
}

func join(c *GameContext, clientID string, initialScore int) {
	if !slices.Contains(c.Players, clientID) {
		c.Players = append(c.Players, clientID)
	}
	c.Scores[clientID] = initialScore
	if c.CurrentPlayer == "" {
		c.CurrentPlayer = c.Players[0]
	}
}

// leave keeps the departed player's score as history.
func leave(c *GameContext, clientID string) {
	c.Players = slices.DeleteFunc(c.Players, func(id string) bool { return id == clientID })
	if c.CurrentPlayer != clientID {
		return
	}
	c.CurrentPlayer = ""
	if len(c.Players) > 0 {
		c.CurrentPlayer = c.Players[0]
	}
}

// applyRoll only alternates between the first two players.
func applyRoll(c *GameContext, won, lost int) {
	opponent := c.Players[0]
	if c.CurrentPlayer == c.Players[0] {
		opponent = c.Players[1]
	}
	c.Scores[c.CurrentPlayer] -= lost
	c.Scores[opponent] -= won
	c.CurrentPlayer = opponent
}

// Engine holds the live snapshot of one room's game and notifies subscribers
// whenever an input changes it. Inputs that leave the snapshot as it was,
// such as an out-of-turn roll or a leave by someone not playing, notify no one.
type Engine struct {
	snapshot     Snapshot
	initialScore int
	stopped      bool
	subscribers  []func(Snapshot)
}

func NewEngine(initialScore int) *Engine {
	return &Engine{
		snapshot:     NewSnapshot(),
		initialScore: initialScore,
	}
}

func (e *Engine) Subscribe(fn func(Snapshot)) {
	e.subscribers = append(e.subscribers, fn)
}

func (e *Engine) Snapshot() Snapshot {
	return e.snapshot.clone()
}

func (e *Engine) Stopped() bool {
	return e.stopped
}

func (e *Engine) Send(in Input) error {
	if e.stopped {
		return ErrEngineStopped
	}

	next, err := Transition(e.snapshot, in, e.initialScore)
	if err != nil {
		return err
	}
	if next.equal(e.snapshot) {
		return nil
	}

	e.snapshot = next
	for _, fn := range e.subscribers {
		fn(next.clone())
	}
	return nil
}

// Stop drops all subscribers. Inputs sent afterwards are rejected.
func (e *Engine) Stop() {
	e.stopped = true
	e.subscribers = nil
}
