// Command hubctl is a terminal client for the community hub.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"arc_community_backend/internal/client/api"
	"arc_community_backend/internal/client/session"
	"arc_community_backend/internal/client/socket"
	"arc_community_backend/internal/client/toast"
	"arc_community_backend/internal/config"
	"arc_community_backend/internal/platform/logger"

	"go.uber.org/zap"
)

const usage = `usage: hubctl <command> [flags]

commands:
  register       -username -email -password
  login          -email -password
  logout
  offers         -listing <id> [-create items -message m | -accept id | -reject id | -counter id -items items] [-watch]
  notifications  [-filter all|unread] [-read id | -read-all | -delete id | -delete-read | -open id] [-watch]
  status         <online|away|busy|dnd>
  online
  chat           -group <id> [-channel slug] [-send text]
  catalog        <weapons|armor|items|enemies|maps> [-search s] [-sort name|rarity|value|newest]
  badges
  back`

// app carries the shared client state for one invocation.
type app struct {
	cfg     *config.ClientConfig
	logger  *zap.Logger
	session *session.Session
	api     *api.Client
	toaster toast.Toaster
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger, err := logger.NewForClient(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	// Toasts are user feedback, so they log at info regardless of LOG_LEVEL.
	toastLogger, err := logger.NewWithOptions(logger.Options{GinMode: cfg.GinMode, Level: "info", Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize toast logger: %v", err)
	}

	sess, err := session.Load(cfg.SessionFile)
	if err != nil {
		appLogger.Fatal("Failed to load session", zap.Error(err))
	}

	a := &app{
		cfg:     cfg,
		logger:  appLogger,
		session: sess,
		api:     api.New(cfg.APIURL, sess, nil, appLogger),
		toaster: toast.NewLogToaster(toastLogger),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	var runErr error
	switch cmd {
	case "register":
		runErr = a.register(ctx, args)
	case "login":
		runErr = a.login(ctx, args)
	case "logout":
		runErr = a.logout(ctx)
	case "offers":
		runErr = a.offers(ctx, args)
	case "notifications":
		runErr = a.notifications(ctx, args)
	case "status":
		runErr = a.status(ctx, args)
	case "online":
		runErr = a.online(ctx)
	case "chat":
		runErr = a.chat(ctx, args)
	case "catalog":
		runErr = a.catalog(ctx, args)
	case "badges":
		runErr = a.badges(ctx)
	case "back":
		runErr = a.back()
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if runErr != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "hubctl %s: %s\n", cmd, api.Message(runErr))
		os.Exit(1)
	}
}

// requireLogin fails early when no token is stored.
func (a *app) requireLogin() error {
	if !a.session.LoggedIn() {
		return fmt.Errorf("not logged in; run hubctl login first")
	}
	return nil
}

// connectSocket dials the hub and runs the read loop in the background.
func (a *app) connectSocket(ctx context.Context) (*socket.Client, <-chan error, error) {
	sc := socket.New(a.cfg.SocketURL, a.session, a.logger)
	if err := sc.Connect(ctx); err != nil {
		return nil, nil, err
	}
	done := make(chan error, 1)
	go func() { done <- sc.Run(ctx) }()
	return sc, done, nil
}
