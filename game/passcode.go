package game

import (
	"encoding/base64"
	"strings"

	nanoid "github.com/jaevor/go-nanoid"
)

const (
	passcodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	passcodeLength   = 4

	// go-nanoid's custom generators never yield anything shorter than 5
	// characters, so passcodes are cut from a 5 character id.
	nanoidMinLength = 5
)

// PasscodeGenerator returns a fresh human-enterable room passcode.
type PasscodeGenerator interface {
	Generate() string
}

type nanoidPasscodes struct {
	next func() string
}

func NewPasscodeGenerator() (PasscodeGenerator, error) {
	next, err := nanoid.CustomASCII(passcodeAlphabet, nanoidMinLength)
	if err != nil {
		return nil, err
	}
	return &nanoidPasscodes{next: next}, nil
}

func (g *nanoidPasscodes) Generate() string {
	return g.next()[:passcodeLength]
}

// NormalizePasscode trims and upper-cases user input so "ab1c " and "AB1C"
// resolve to the same room.
func NormalizePasscode(passcode string) string {
	return strings.ToUpper(strings.TrimSpace(passcode))
}

// RoomIDFromPasscode is the fixed, reversible mapping from a passcode to the
// id a room is registered under.
func RoomIDFromPasscode(passcode string) string {
	return base64.StdEncoding.EncodeToString([]byte(passcode))
}

func PasscodeFromRoomID(id string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(id)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
