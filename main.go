package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"slices"
	"time"

	"diceroom/config"
	"diceroom/game"
	"diceroom/logger"
	"diceroom/migrations"
	"diceroom/storage"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const journalWriteTimeout = 5 * time.Second

func CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.SetTrustedProxies([]string{"127.0.0.1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})
	r.GET("/health", func(ctx *gin.Context) { ctx.String(http.StatusOK, "healthy") })

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")

		if slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		log.Debug().
			Str("method", ctx.Request.Method).
			Str("path", ctx.Request.URL.Path).
			Int("status", ctx.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("ip", ctx.ClientIP()).
			Msg("request")
	}
}

func RegisterRoutes(r *gin.Engine, h *game.GameHandler) {
	r.GET("/ws", h.WebsocketHandler)

	rooms := r.Group("/rooms")
	rooms.GET("", h.ListRoomsHandler)
	rooms.GET("/:id/rolls", h.RollHistoryHandler)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	logger.Init(cfg.Debug, cfg.LogPretty)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// Dependencies
	var (
		journal game.RollJournal = game.NopJournal{}
		history game.RollHistory
		repo    *storage.PostgresRepo
		async   *game.AsyncJournal
	)
	if cfg.JournalEnabled() {
		if err := migrations.Migrate(cfg.PostgresURL); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
		repo, err = storage.NewPostgresRepo(context.Background(), cfg.PostgresURL)
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to postgres")
		}
		async = game.NewAsyncJournal(repo, cfg.JournalQueue, journalWriteTimeout)
		go async.Run()
		journal = async
		history = repo
	} else {
		log.Info().Msg("POSTGRES_URL not set, roll journal disabled")
	}

	passcodes, err := game.NewPasscodeGenerator()
	if err != nil {
		log.Fatal().Err(err).Msg("passcode generator")
	}

	dispatcher := game.NewDispatcher(game.NewRegistry(), passcodes, journal, cfg.InitialScore)
	hub := game.NewHub(dispatcher, game.NewSystemTicker(), cfg.PingInterval)

	hubStarted := make(chan struct{})
	go hub.Run(hubStarted)
	<-hubStarted

	gameHandler := game.NewGameHandler(hub, history, game.ClientSettings{
		RateLimit:  rate.Limit(cfg.RateLimit),
		RateBurst:  cfg.RateBurst,
		OutboxSize: cfg.OutboxSize,
		PongWait:   2 * cfg.PingInterval,
	})

	r := CreateServer(cfg.AllowedOrigins)
	RegisterRoutes(r, gameHandler)

	srv := &http.Server{Addr: cfg.Addr(), Handler: r}
	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("couldn't start server")
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"server": func(ctx context.Context) error {
				// Upgraded websockets are hijacked, so Shutdown does not wait for them.
				if err := srv.Shutdown(ctx); err != nil {
					return err
				}
				if err := hub.Stop(ctx); err != nil {
					return err
				}
				if async != nil {
					if err := async.Close(ctx); err != nil {
						return err
					}
				}
				if repo != nil {
					repo.Close()
				}
				return nil
			},
		},
	)

	exitCode := <-wait
	log.Info().Int("code", exitCode).Msg("shutting down now")
	os.Exit(exitCode)
}
