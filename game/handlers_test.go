package game

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"diceroom/domain"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

var testSettings = ClientSettings{
	RateLimit:  rate.Inf,
	RateBurst:  1,
	OutboxSize: 16,
	PongWait:   time.Minute,
}

func TestRollHistoryHandler(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	recordedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name         string
		setupMocks   func(*MockRollHistory)
		noHistory    bool
		query        string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "journal disabled",
			setupMocks:   func(h *MockRollHistory) {},
			noHistory:    true,
			expectedCode: http.StatusServiceUnavailable,
			expectedBody: "journal-disabled",
		},
		{
			name:         "limit is not a number",
			setupMocks:   func(h *MockRollHistory) {},
			query:        "?limit=abc",
			expectedCode: http.StatusBadRequest,
			expectedBody: "invalid-limit",
		},
		{
			name:         "limit too low",
			setupMocks:   func(h *MockRollHistory) {},
			query:        "?limit=0",
			expectedCode: http.StatusBadRequest,
			expectedBody: "invalid-limit",
		},
		{
			name:         "limit too high",
			setupMocks:   func(h *MockRollHistory) {},
			query:        "?limit=501",
			expectedCode: http.StatusBadRequest,
			expectedBody: "invalid-limit",
		},
		{
			name: "database error",
			setupMocks: func(h *MockRollHistory) {
				h.On("ListRolls", mock.Anything, "QUIxMg==", defaultRollsLimit).
					Return([]domain.RollRecord(nil), domain.ErrUnexpectedDatabase)
			},
			expectedCode: http.StatusInternalServerError,
			expectedBody: "unknown-error",
		},
		{
			name: "default limit",
			setupMocks: func(h *MockRollHistory) {
				h.On("ListRolls", mock.Anything, "QUIxMg==", defaultRollsLimit).
					Return([]domain.RollRecord{{
						RoomID: "QUIxMg==", ClientID: "a", Won: 3, Lost: 2, Accepted: true, RecordedAt: recordedAt,
					}}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"rolls":[{"roomId":"QUIxMg==","clientId":"a","won":3,"lost":2,"accepted":true,"recordedAt":"2024-05-01T12:00:00Z"}]}`,
		},
		{
			name: "explicit limit",
			setupMocks: func(h *MockRollHistory) {
				h.On("ListRolls", mock.Anything, "QUIxMg==", 5).Return([]domain.RollRecord{}, nil)
			},
			query:        "?limit=5",
			expectedCode: http.StatusOK,
			expectedBody: `{"rolls":[]}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			history := &MockRollHistory{}
			tc.setupMocks(history)

			var h *GameHandler
			if tc.noHistory {
				h = NewGameHandler(nil, nil, testSettings)
			} else {
				h = NewGameHandler(nil, history, testSettings)
			}

			router := gin.New()
			router.GET("/rooms/:id/rolls", h.RollHistoryHandler)

			req := httptest.NewRequest(http.MethodGet, "/rooms/QUIxMg==/rolls"+tc.query, nil)
			res := httptest.NewRecorder()

			router.ServeHTTP(res, req)

			assert.Equal(t, tc.expectedCode, res.Code)
			if tc.expectedCode == http.StatusOK {
				assert.JSONEq(t, tc.expectedBody, res.Body.String())
			} else {
				assert.Contains(t, res.Body.String(), tc.expectedBody)
			}
			history.AssertExpectations(t)
		})
	}
}

func TestRollHistoryHandler_InvalidRoomID(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	history := &MockRollHistory{}
	h := NewGameHandler(nil, history, testSettings)

	router := gin.New()
	router.GET("/rooms/:id/rolls", h.RollHistoryHandler)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/rooms/not*base64/rolls", nil))

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "invalid-room-id", res.Body.String())
	history.AssertNotCalled(t, "ListRolls", mock.Anything, mock.Anything, mock.Anything)
}

func TestListRoomsHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub, _ := startHub(t, "AB12")
	h := NewGameHandler(hub, nil, testSettings)

	router := gin.New()
	router.GET("/rooms", h.ListRoomsHandler)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/rooms", nil))

	assert.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"rooms":[]}`, res.Body.String())

	require.NoError(t, hub.Stop(context.Background()))

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/rooms", nil))

	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
	assert.Equal(t, "server-shutting-down", res.Body.String())
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, res, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, res.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var m map[string]any
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func readUntil(t *testing.T, conn *websocket.Conn, eventType string) map[string]any {
	t.Helper()
	for {
		ev := readEvent(t, conn)
		if ev["type"] == eventType {
			return ev
		}
	}
}

func TestWebsocketHandler_TwoPlayers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub, _ := startHub(t, "AB12")
	h := NewGameHandler(hub, nil, testSettings)

	router := gin.New()
	router.GET("/ws", h.WebsocketHandler)
	server := httptest.NewServer(router)
	defer server.Close()

	x := dial(t, server)
	connected := readEvent(t, x)
	require.Equal(t, "connected", connected["type"])
	xID := connected["clientId"].(string)
	assert.NotEmpty(t, xID)

	require.NoError(t, x.WriteJSON(map[string]any{"type": "create-room"}))
	created := readEvent(t, x)
	assert.Equal(t, map[string]any{"type": "created-room", "id": "QUIxMg==", "passcode": "AB12"}, created)

	y := dial(t, server)
	yID := readEvent(t, y)["clientId"].(string)
	assert.NotEqual(t, xID, yID)

	require.NoError(t, y.WriteJSON(map[string]any{"type": "join-room", "passcode": "AB12"}))

	joined := readUntil(t, y, "joined-room")
	assert.Equal(t, float64(2), joined["clients"])

	userJoined := readUntil(t, x, "user-joined")
	assert.Equal(t, yID, userJoined["clientId"])

	ctx := readUntil(t, y, "context")
	assert.Equal(t, "rolling", ctx["state"])
	assert.Equal(t, xID, ctx["context"].(map[string]any)["currentPlayer"])

	require.NoError(t, x.WriteJSON(map[string]any{"type": "roll-result", "won": 3, "lost": 2}))
	ctx = readUntil(t, y, "context")
	assert.Equal(t, yID, ctx["context"].(map[string]any)["currentPlayer"])
	assert.Equal(t, map[string]any{xID: float64(18), yID: float64(17)}, ctx["context"].(map[string]any)["scores"])

	require.NoError(t, x.Close())

	left := readUntil(t, y, "user-left")
	assert.Equal(t, xID, left["clientId"])
	assert.Equal(t, float64(1), left["clients"])
}

func TestWebsocketHandler_HubStopped(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub, _ := startHub(t, "AB12")
	require.NoError(t, hub.Stop(context.Background()))
	h := NewGameHandler(hub, nil, testSettings)

	router := gin.New()
	router.GET("/ws", h.WebsocketHandler)
	server := httptest.NewServer(router)
	defer server.Close()

	conn := dial(t, server)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()

	var closeErr *websocket.CloseError
	require.True(t, errors.As(err, &closeErr), "expected close frame, got %v", err)
	assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)
	assert.Equal(t, "server-unavailable", closeErr.Text)
}
