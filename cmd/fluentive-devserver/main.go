package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/fluentive/fluentive-go/devserver"
	"github.com/fluentive/fluentive-go/internal/config"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if err := run(logger); err != nil {
		logger.Fatal().Err(err).Msg("devserver failed")
	}
	logger.Info().Msg("devserver stopped")
}

func run(logger zerolog.Logger) error {
	c := config.Load(logger)
	displayAppname("Fluentive Dev")

	srv := devserver.New(
		devserver.WithSecret(c.JWTSecret()),
		devserver.WithTokenTTLs(c.AccessTokenTTL(), c.RefreshTokenTTL()),
		devserver.WithLogger(logger),
	)
	httpServer := &http.Server{Addr: ":" + c.Port(), Handler: srv}

	errs := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errs:
		return err
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
