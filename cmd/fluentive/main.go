// Command fluentive is a small CLI against the platform API. It keeps its
// access token in a file, so a second run resumes the session silently: the
// refresh cookie in the jar is gone between processes, but an unexpired
// token from the file still works, and a dead one just drops the user back
// to a credential login.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/fluentive/fluentive-go"
	"github.com/fluentive/fluentive-go/guard"
	"github.com/fluentive/fluentive-go/internal/config"
	"github.com/fluentive/fluentive-go/lessons"
	"github.com/fluentive/fluentive-go/session"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if err := run(logger); err != nil {
		logger.Fatal().Err(err).Msg("fluentive failed")
	}
}

func run(logger zerolog.Logger) error {
	c := config.Load(logger)
	displayAppname("Fluentive")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	httpClient := &http.Client{Jar: jar, Timeout: c.HTTPTimeout()}

	options := []fluentive.Option{
		fluentive.WithHTTPClient(httpClient),
		fluentive.WithStorage(session.NewFileStorage(c.TokenFile())),
		fluentive.WithLogger(logger),
	}
	if addr := c.RedisAddr(); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close()
		options = append(options, fluentive.WithChannel(session.NewRedisChannel(rdb, "", logger)))
	}

	client, err := fluentive.New(c.BaseURL(), options...)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := bootstrap(ctx, client, c, logger); err != nil {
		return err
	}
	return show(ctx, client)
}

// bootstrap settles the session the way the web app's route guard does: a
// held or silently refreshed token passes, otherwise we log in with the
// configured credentials.
func bootstrap(ctx context.Context, client *fluentive.Client, c *config.Config, logger zerolog.Logger) error {
	g := guard.New(client.Session, client.Coordinator)
	result, err := g.Check(ctx, guard.Route{Path: "/app"})
	if err != nil {
		return err
	}
	if result.Authorized {
		logger.Info().Msg("session resumed")
		return nil
	}

	if c.Email() == "" || c.Password() == "" {
		return errors.New("no session and no credentials: set FLUENTIVE_EMAIL and FLUENTIVE_PASSWORD")
	}
	if err := client.Auth.Login(ctx, c.Email(), c.Password()); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	logger.Info().Str("email", c.Email()).Msg("logged in")
	return nil
}

func show(ctx context.Context, client *fluentive.Client) error {
	myGroups, err := client.Groups.Mine(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Groups (%d):\n", len(myGroups))
	for _, g := range myGroups {
		fmt.Printf("  #%d %s [%s]\n", g.ID, g.Name, g.MyRole)
	}

	personal, err := client.Lessons.MyPersonal(ctx, 0, 20)
	if err != nil {
		return err
	}
	groupWide, err := client.Lessons.MyGroupWide(ctx, 0, 20)
	if err != nil {
		return err
	}
	fmt.Printf("Assignments (%d personal, %d group-wide):\n",
		personal.TotalElements, groupWide.TotalElements)
	for _, a := range append(personal.Content, groupWide.Content...) {
		fmt.Printf("  #%d %s (%s)\n", a.ID, a.LessonTitle, describeScope(a))
	}
	return nil
}

func describeScope(a lessons.Assignment) string {
	if a.AssignedToUserID != nil {
		return "personal"
	}
	return fmt.Sprintf("group %d", a.GroupID)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
