package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/taskify-app/taskify-chat/internal/api"
	"github.com/taskify-app/taskify-chat/internal/chat"
	"github.com/taskify-app/taskify-chat/internal/config"
	"github.com/taskify-app/taskify-chat/internal/database"
	"github.com/taskify-app/taskify-chat/internal/events"
	"github.com/taskify-app/taskify-chat/internal/stats"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	signingKey     string
	natsURL        string
	projectsURL    string
	allowedOrigins stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&signingKey, "signing-key", "", "base64 encoded signing key shared with the TaskiFy API")
	flag.StringVar(&natsURL, "nats-url", "", "NATS server URL for outbound notifications (optional)")
	flag.StringVar(&projectsURL, "projects-url", "", "base URL of the TaskiFy API for project lead lookups (optional)")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[taskify-chat] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins, natsURL)
	if err != nil {
		logger.Fatal("config:", err)
	}

	repo, err := database.NewPgMessageRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if err := repo.Migrate(); err != nil {
		logger.Fatal("migrate:", err)
	}

	var publisher *events.Publisher
	if cfg.NatsURL != "" {
		publisher, err = events.NewPublisher(logger, cfg.NatsURL)
		if err != nil {
			logger.Fatal("nats connect:", err)
		}
		defer publisher.Close()
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)
	for _, metric := range []string{
		chat.StatActiveConnections,
		chat.StatPresenceEntries,
		chat.StatMessagesSent,
		chat.StatMessagesEdited,
		chat.StatMessagesDeleted,
	} {
		statsUpdater.RegisterMetric(metric)
	}

	presence := chat.NewPresenceRegistry()
	hub := chat.NewHub(logger, presence, statsUpdater)

	var directory chat.ProjectDirectory = chat.NewStaticProjectDirectory(nil)
	if projectsURL != "" {
		directory = chat.NewHttpProjectDirectory(projectsURL)
	}

	coordinator := chat.NewCoordinator(logger, repo, hub, directory, publisher)

	resolver := api.NewJwtIdentityResolver(cfg.SigningKey)
	srv := api.NewChatApp(mux, logger, hub, coordinator, repo, resolver, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
