package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/astba/trainingcenter/auth"
	"github.com/astba/trainingcenter/internal/config"
	"github.com/astba/trainingcenter/migrations"
	"github.com/astba/trainingcenter/server"
	"github.com/astba/trainingcenter/token"
	"github.com/astba/trainingcenter/token/refresh"
	"github.com/astba/trainingcenter/users"
)

const cleanupInterval = time.Hour

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Any("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load() // .env is optional outside local development

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	codec, err := token.NewCodec(c.GetJWTSecret(), c.GetAccessTokenTTL(), c.GetRefreshTokenTTL())
	if err != nil {
		return fmt.Errorf("token codec: %w", err)
	}

	db, err := openDatabase(c.GetDatabaseDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	repos := auth.Repos{
		Users:         users.NewPostgresRepo(db),
		RefreshTokens: refresh.NewPostgresRepo(db),
	}
	authService, err := auth.NewService(repos, codec)
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}

	srv, err := server.New(c, authService, codec)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cleanupLoop(ctx, authService.Ledger())

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	return shutdown(httpServer)
}

func setupLogging(c config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func openDatabase(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return nil, fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return db, nil
}

// cleanupLoop periodically deletes refresh token records whose expiry has
// passed. Storage hygiene only; an expired record already fails validation.
func cleanupLoop(ctx context.Context, ledger *refresh.Ledger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := ledger.CleanupExpired(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("refresh token cleanup failed")
				continue
			}
			if deleted > 0 {
				log.Info().Int64("deleted", deleted).Msg("expired refresh tokens cleaned up")
			}
		}
	}
}

func listenAndServe(httpServer *http.Server) {
	log.Info().Str("addr", httpServer.Addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
