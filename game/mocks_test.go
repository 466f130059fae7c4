package game

import (
	"context"
	"time"

	"diceroom/domain"

	"github.com/stretchr/testify/mock"
)

// --- WebsocketConnection ---

type MockWebsocketConnection struct {
	mock.Mock
}

func (m *MockWebsocketConnection) Close(reason string) {
	m.Called(reason)
}

func (m *MockWebsocketConnection) Write(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockWebsocketConnection) Read() ([]byte, error) {
	args := m.Called()
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockWebsocketConnection) Ping() error {
	args := m.Called()
	return args.Error(0)
}

// --- PeriodicTickerChannelCreator ---

type MockPeriodicTickerChannelCreator struct {
	mock.Mock
}

func (m *MockPeriodicTickerChannelCreator) Create(duration time.Duration) <-chan time.Time {
	args := m.Called(duration)
	return args.Get(0).(chan time.Time)
}

// --- RollRecorder ---

type MockRollRecorder struct {
	mock.Mock
}

func (m *MockRollRecorder) RecordRoll(ctx context.Context, rec domain.RollRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

// --- RollHistory ---

type MockRollHistory struct {
	mock.Mock
}

func (m *MockRollHistory) ListRolls(ctx context.Context, roomID string, limit int) ([]domain.RollRecord, error) {
	args := m.Called(ctx, roomID, limit)
	return args.Get(0).([]domain.RollRecord), args.Error(1)
}

// --- RollJournal ---

// recordingJournal keeps every record in memory.
type recordingJournal struct {
	records []domain.RollRecord
}

func (j *recordingJournal) Record(rec domain.RollRecord) {
	j.records = append(j.records, rec)
}

// --- PasscodeGenerator ---

type fixedPasscodes struct {
	codes []string
	next  int
}

func (f *fixedPasscodes) Generate() string {
	code := f.codes[f.next%len(f.codes)]
	f.next++
	return code
}
