package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/codingconcepts/env"
	"github.com/golden-vcr/server-common/db"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/lib/pq"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/sansad-av/talktime/gen/queries"
	"github.com/sansad-av/talktime/internal/broadcast"
	"github.com/sansad-av/talktime/internal/control"
	"github.com/sansad-av/talktime/internal/directory"
	"github.com/sansad-av/talktime/internal/display"
	"github.com/sansad-av/talktime/internal/feed"
	"github.com/sansad-av/talktime/internal/health"
	"github.com/sansad-av/talktime/internal/local"
	"github.com/sansad-av/talktime/internal/metrics"
	"github.com/sansad-av/talktime/internal/photos"
	"github.com/sansad-av/talktime/internal/sse"
	"github.com/sansad-av/talktime/internal/timecodec"
	"github.com/sansad-av/talktime/internal/viewer"
)

type Config struct {
	BindAddr   string `env:"BIND_ADDR"`
	ListenPort uint16 `env:"LISTEN_PORT" default:"5000"`
	PublicURL  string `env:"PUBLIC_URL" default:"http://localhost:5000"`

	DirectoryURL string `env:"DIRECTORY_URL"`
	OpenBrowser  bool   `env:"OPEN_BROWSER"`

	FeedStore        string `env:"FEED_STORE" default:"memory"`
	FeedPublishURL   string `env:"FEED_PUBLISH_URL"`
	DatabaseHost     string `env:"PGHOST"`
	DatabasePort     int    `env:"PGPORT" default:"5432"`
	DatabaseName     string `env:"PGDATABASE"`
	DatabaseUser     string `env:"PGUSER"`
	DatabasePassword string `env:"PGPASSWORD"`
	DatabaseSslMode  string `env:"PGSSLMODE"`

	SpacesBucketName     string `env:"SPACES_BUCKET_NAME"`
	SpacesRegionName     string `env:"SPACES_REGION_NAME"`
	SpacesEndpointOrigin string `env:"SPACES_ENDPOINT_URL"`
	SpacesAccessKeyId    string `env:"SPACES_ACCESS_KEY_ID"`
	SpacesSecretKey      string `env:"SPACES_SECRET_KEY"`
}

// storeFeed lets the server's own projector page read the feed slot the same way a
// remote viewer would, without going over HTTP
type storeFeed struct {
	store feed.Store
}

func (f storeFeed) Poll(ctx context.Context) (broadcast.State, error) {
	return f.store.Get(ctx)
}

func main() {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Fatalf("error loading .env file: %v", err)
	}
	config := Config{}
	if err := env.Set(&config); err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	ctx, close := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill, syscall.SIGTERM)
	defer close()

	clock := timecodec.RealClock{}
	metrics.Register()
	var wg errgroup.Group

	// Every state accepted into the feed slot is fanned out to SSE clients
	changes := make(chan broadcast.State, 32)
	onChange := func(state broadcast.State) {
		select {
		case changes <- state:
		default:
			fmt.Printf("FEED | Change stream is backed up; skipping version %d\n", state.Version)
		}
	}

	var store feed.Store
	switch config.FeedStore {
	case "memory":
		store = feed.NewMemoryStore(clock, onChange)
	case "postgres":
		connectionString := db.FormatConnectionString(
			config.DatabaseHost,
			config.DatabasePort,
			config.DatabaseName,
			config.DatabaseUser,
			config.DatabasePassword,
			config.DatabaseSslMode,
		)
		pgdb, err := sql.Open("postgres", connectionString)
		if err != nil {
			log.Fatalf("error opening database: %v", err)
		}
		defer pgdb.Close()
		if err := pgdb.Ping(); err != nil {
			log.Fatalf("error connecting to database: %v", err)
		}
		store = feed.NewPostgresStore(queries.New(pgdb))

		pql := pq.NewListener(connectionString, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
			if err != nil {
				fmt.Printf("FEED | Postgres listener error: %v\n", err)
			}
		})
		listener, err := feed.NewChangeListener(ctx, pql, store, onChange)
		if err != nil {
			log.Fatalf("error initializing feed change listener: %v", err)
		}
		wg.Go(func() error {
			return listener.Run(ctx)
		})
	default:
		log.Fatalf("unsupported FEED_STORE '%s'; expected 'memory' or 'postgres'", config.FeedStore)
	}

	var opener local.Opener = local.LogOpener{}
	if config.OpenBrowser {
		opener = local.BrowserOpener{}
	}
	transport := local.NewTransport(clock, opener, nil)
	publisher := feed.NewStorePublisher(store)
	if config.FeedPublishURL != "" {
		// Another server hosts the feed that viewers poll; this one only controls
		publisher = feed.NewHTTPPublisher(config.FeedPublishURL, &http.Client{})
		fmt.Printf("FEED | Publishing to %s\n", config.FeedPublishURL)
	}
	model := broadcast.NewModel(clock, transport, publisher)
	transport.SetSnapshotFunc(model.Snapshot)

	var dir control.Directory
	var chairs display.ChairSource
	if config.DirectoryURL != "" {
		client := directory.NewClient(config.DirectoryURL, &http.Client{Timeout: 5 * time.Second})
		dir = client
		chairs = client
	}

	var resolver control.PhotoResolver
	if config.SpacesBucketName != "" {
		storage, err := photos.NewSpacesStorage(
			config.SpacesAccessKeyId,
			config.SpacesSecretKey,
			config.SpacesEndpointOrigin,
			config.SpacesRegionName,
			config.SpacesBucketName,
		)
		if err != nil {
			log.Fatalf("error initializing photo storage: %v", err)
		}
		resolver = photos.NewOffloader(storage, "talktime/photos")
	}

	poller := viewer.NewPoller(storeFeed{store: store}, clock)
	poller.Start(ctx)
	defer poller.Stop()

	events := sse.NewHandler[broadcast.State](ctx, changes)
	events.EventName = "state"
	events.OnConnectEventFunc = func() broadcast.State {
		state, err := store.Get(context.Background())
		if err != nil {
			return broadcast.IdleState(broadcast.Chair{})
		}
		return state
	}

	r := mux.NewRouter()
	{
		feedServer := feed.NewServer(store)
		feedServer.Events = events
		feedServer.RegisterRoutes(r)
	}
	{
		displayURL := strings.TrimSuffix(config.PublicURL, "/") + "/broadcast"
		control.NewServer(model, transport, dir, resolver, displayURL, clock).RegisterRoutes(r)
	}
	transport.RegisterRoutes(r)
	display.NewPageServer(clock, transport, poller, chairs).RegisterRoutes(r)
	r.Path("/health").Methods("GET").Handler(health.NewServer(func(ctx context.Context) error {
		_, err := store.Get(ctx)
		return err
	}, transport.Status))
	r.Path("/metrics").Methods("GET").Handler(metrics.Handler())

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}).Handler(r)

	wg.Go(func() error {
		return publisher.Run(ctx)
	})
	wg.Go(func() error {
		return model.Run(ctx, broadcast.DefaultTickInterval)
	})

	addr := fmt.Sprintf("%s:%d", config.BindAddr, config.ListenPort)
	server := &http.Server{Addr: addr, Handler: handler}
	fmt.Printf("Listening on %s...\n", addr)
	wg.Go(server.ListenAndServe)

	<-ctx.Done()
	fmt.Printf("Received signal; closing server...\n")
	server.Shutdown(context.Background())

	err = wg.Wait()
	if err == http.ErrServerClosed {
		fmt.Printf("Server closed.\n")
	} else {
		log.Fatalf("error running server: %v", err)
	}
}
