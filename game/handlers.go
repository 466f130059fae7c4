package game

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	defaultRollsLimit = 50
	maxRollsLimit     = 500
)

type ClientSettings struct {
	RateLimit  rate.Limit
	RateBurst  int
	OutboxSize int
	PongWait   time.Duration
}

type GameHandler struct {
	hub      *Hub
	history  RollHistory
	settings ClientSettings
	upgrader websocket.Upgrader
}

// NewGameHandler builds the HTTP side of the game. history may be nil when no
// roll journal is configured.
func NewGameHandler(hub *Hub, history RollHistory, settings ClientSettings) *GameHandler {
	return &GameHandler{
		hub:      hub,
		history:  history,
		settings: settings,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The origin middleware has already vetted the request.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *GameHandler) WebsocketHandler(ctx *gin.Context) {
	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("ip", ctx.ClientIP()).Msg("websocket upgrade failed")
		return
	}

	socket := NewWebsocketConnection(conn, h.settings.PongWait)
	client := NewClient(
		uuid.NewString(),
		socket,
		rate.NewLimiter(h.settings.RateLimit, h.settings.RateBurst),
		h.settings.OutboxSize,
	)

	if err := h.hub.Register(ctx.Request.Context(), client); err != nil {
		log.Warn().Err(err).Str("client", client.ID()).Msg("could not register client")
		socket.Close("server-unavailable")
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

func (h *GameHandler) ListRoomsHandler(ctx *gin.Context) {
	rooms, err := h.hub.ListRooms(ctx.Request.Context())
	if err != nil {
		if errors.Is(err, ErrHubStopped) {
			ctx.String(http.StatusServiceUnavailable, "server-shutting-down")
			return
		}
		ctx.String(http.StatusRequestTimeout, "timeout")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *GameHandler) RollHistoryHandler(ctx *gin.Context) {
	if h.history == nil {
		ctx.String(http.StatusServiceUnavailable, "journal-disabled")
		return
	}

	roomID := ctx.Param("id")
	if _, err := PasscodeFromRoomID(roomID); err != nil {
		ctx.String(http.StatusBadRequest, "invalid-room-id")
		return
	}

	limit := defaultRollsLimit
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRollsLimit {
			ctx.String(http.StatusBadRequest, "invalid-limit")
			return
		}
		limit = n
	}

	rolls, err := h.history.ListRolls(ctx.Request.Context(), roomID, limit)
	if err != nil {
		log.Error().Err(err).Str("room", roomID).Msg("failed to list rolls")
		ctx.String(http.StatusInternalServerError, "unknown-error")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"rolls": rolls})
}
