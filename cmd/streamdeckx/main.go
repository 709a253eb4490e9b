// streamdeckx drives Stream Deck macro pads: it discovers attached decks,
// renders their button faces and runs each button's action sequence when
// it is pressed. Decks are configured over a local HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/streamdeckx/internal/action"
	"github.com/nerrad567/streamdeckx/internal/api"
	"github.com/nerrad567/streamdeckx/internal/deck"
	"github.com/nerrad567/streamdeckx/internal/discovery"
	"github.com/nerrad567/streamdeckx/internal/dispatch"
	"github.com/nerrad567/streamdeckx/internal/hardware/streamdeck"
	"github.com/nerrad567/streamdeckx/internal/hardware/virtual"
	"github.com/nerrad567/streamdeckx/internal/infrastructure/config"
	"github.com/nerrad567/streamdeckx/internal/infrastructure/database"
	"github.com/nerrad567/streamdeckx/internal/infrastructure/influxdb"
	"github.com/nerrad567/streamdeckx/internal/infrastructure/logging"
	"github.com/nerrad567/streamdeckx/internal/infrastructure/mqtt"
	"github.com/nerrad567/streamdeckx/internal/input"
	"github.com/nerrad567/streamdeckx/internal/keys"
	"github.com/nerrad567/streamdeckx/internal/process"
	"github.com/nerrad567/streamdeckx/internal/render"
	"github.com/nerrad567/streamdeckx/internal/telemetry"
	"github.com/nerrad567/streamdeckx/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path. A missing default file falls back to
// built-in defaults; a missing explicit file is an error.
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run parses flags, wires every component and blocks until ctx is
// cancelled or a component fails.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := pflag.NewFlagSet("streamdeckx", pflag.ContinueOnError)
	flags.SetOutput(stdout)
	configPath := flags.StringP("config", "c", "", "path to the YAML configuration file (env STREAMDECKX_CONFIG)")
	showVersion := flags.BoolP("version", "v", false, "print version information and exit")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}
	if *showVersion {
		fmt.Fprintf(stdout, "streamdeckx %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	log := logging.Default()
	log.Info("starting streamdeckx",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, path, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", path)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx, migrations.Source()); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	checks := map[string]api.HealthChecker{"database": db}

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		checks["mqtt"] = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		checks["influxdb"] = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	renderer, err := render.New(render.Config{
		TopOffset:   cfg.Render.TopOffset,
		DefaultFont: cfg.Render.Font,
		CacheSize:   cfg.Render.FaceCacheSize,
	})
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	keyRegistry := keys.New()
	launcher := process.NewLauncher(log)
	launcher.OnExit = func(command string, err error) {
		if err != nil {
			log.Warn("application exited with error", "command", command, "error", err)
		}
	}
	factory := &action.Factory{
		Keys:     keyRegistry,
		Injector: newInjector(cfg.Input, mqttClient, log),
		Launcher: launcher,
	}

	repo := deck.NewSQLiteRepository(db.DB)
	repo.SetLogger(log)
	decks := deck.NewRegistry()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := telemetry.NewMetrics(reg)
	if err != nil {
		return err
	}

	hub := api.NewHub(cfg.WebSocket, log)
	sinks := telemetry.Sinks{Hub: hub, Metrics: metrics, Logger: log}
	if mqttClient != nil {
		sinks.MQTT = mqttClient
	}
	if influxClient != nil {
		sinks.Influx = influxClient
	}
	publisher := telemetry.NewPublisher(sinks)

	dispatcher := dispatch.New(decks, dispatch.Options{Notifier: publisher, Logger: log})

	reconciler, err := discovery.NewReconciler(discovery.Config{
		Transport:  newTransport(cfg.Discovery, log),
		Registry:   decks,
		Repository: repo,
		Deck: deck.Config{
			Store:    repo,
			Renderer: renderer,
			Actions:  factory,
			Logger:   log,
		},
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("creating reconciler: %w", err)
	}
	scanner, err := discovery.NewScanner(discovery.ScannerConfig{
		Reconciler: reconciler,
		Keys:       dispatcher,
		Observer:   publisher,
		Interval:   cfg.Discovery.ScanInterval,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("creating scanner: %w", err)
	}

	if mqttClient != nil {
		if err := dispatcher.SubscribeCommands(ctx, mqttClient); err != nil {
			return fmt.Errorf("subscribing to commands: %w", err)
		}
	}

	server, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Logger:     log,
		Decks:      decks,
		Scanner:    scanner,
		Executor:   dispatcher,
		Keys:       keyRegistry,
		Gatherer:   reg,
		Registerer: reg,
		Checks:     checks,
		Hub:        hub,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if err := server.Start(gctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return server.Close()
	})
	g.Go(func() error {
		if err := scanner.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("scanner: %w", err)
		}
		return nil
	})

	log.Info("initialisation complete", "api", server.Addr())

	err = g.Wait()
	closeDecks(decks, log)
	log.Info("streamdeckx stopped")
	return err
}

// loadConfig resolves the configuration path from the flag, then
// STREAMDECKX_CONFIG, then the default path.
func loadConfig(flagPath string) (*config.Config, string, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv("STREAMDECKX_CONFIG")
	}
	if path != "" {
		cfg, err := config.Load(path)
		return cfg, path, err
	}

	if _, err := os.Stat(defaultConfigPath); errors.Is(err, os.ErrNotExist) {
		cfg, err := config.Default()
		return cfg, "(built-in defaults)", err
	}
	cfg, err := config.Load(defaultConfigPath)
	return cfg, defaultConfigPath, err
}

// newInjector selects the keystroke injector for the configured mode.
// Validation guarantees an MQTT client when the mode is mqtt.
func newInjector(cfg config.InputConfig, client *mqtt.Client, log *logging.Logger) action.Injector {
	if cfg.Mode == config.InputModeMQTT && client != nil {
		return input.NewRemoteInjector(client, mqtt.Topics{}.Input(cfg.Host))
	}
	return input.NewLogInjector(log)
}

// newTransport combines the USB HID transport, when enabled, with the
// configured virtual decks.
func newTransport(cfg config.DiscoveryConfig, log *logging.Logger) discovery.Transport {
	var transports discovery.MultiTransport
	if cfg.HIDEnabled {
		transports = append(transports, streamdeck.NewTransport(log))
	}
	if len(cfg.VirtualDecks) > 0 {
		specs := make([]virtual.Spec, len(cfg.VirtualDecks))
		for i, v := range cfg.VirtualDecks {
			specs[i] = virtual.Spec{
				Serial:  v.Serial,
				Name:    v.Name,
				Columns: v.Columns,
				Rows:    v.Rows,
				KeySize: v.KeySize,
			}
		}
		transports = append(transports, virtual.NewTransport(specs...))
	}
	return transports
}

// closeDecks blanks and releases every open deck on shutdown.
func closeDecks(decks *deck.Registry, log *logging.Logger) {
	for _, d := range decks.List() {
		if d.State() != deck.StateOpen {
			continue
		}
		if err := d.Reset(); err != nil {
			log.Warn("resetting deck", "serial", d.Serial(), "error", err)
		}
		if err := d.Close(); err != nil {
			log.Warn("closing deck", "serial", d.Serial(), "error", err)
		}
	}
}
