package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/moonward/lander/internal/api"
	"github.com/moonward/lander/internal/config"
	"github.com/moonward/lander/internal/dispatcher"
	"github.com/moonward/lander/internal/game"
	"github.com/moonward/lander/internal/input"
	"github.com/moonward/lander/internal/logging"
	"github.com/moonward/lander/internal/monitor"
	intOtel "github.com/moonward/lander/internal/otel"
	"github.com/moonward/lander/internal/params"
	"github.com/moonward/lander/internal/recorder"
	"github.com/moonward/lander/internal/round"
	"github.com/moonward/lander/internal/server"
	"github.com/moonward/lander/internal/storage"
	"github.com/moonward/lander/internal/telemetry"
)

// CurrentVersion and BuildDate can be set at build time via ldflags.
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	ServiceName string = "lander-server"
)

func main() {
	sessionStart := time.Now()

	// Log to stderr until the log file is ready.
	logManager := logging.NewManager()
	logManager.Setup(os.Stderr, "info", nil)
	logger := logManager.Logger()

	if err := config.Load("."); err != nil {
		logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		logger.Info("Loaded config")
	}

	logsDir := viper.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		os.MkdirAll(logsDir, 0755)
	}

	logFilePath := logging.LogFilePath(logsDir, ServiceName, sessionStart)
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		logger.Error("Failed to create/open log file!", "error", err, "path", logFilePath)
		os.Exit(1)
	}
	defer logFile.Close()

	// Initialize OTel provider if enabled (after log file is created).
	var otelProvider *intOtel.Provider
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		otelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			logger.Error("Failed to initialize OTel provider", "error", err)
		}
	}

	// Re-setup logging with file output and optional OTel.
	var otelLogProvider *sdklog.LoggerProvider
	if otelProvider != nil {
		otelLogProvider = otelProvider.LoggerProvider()
	}
	logManager.Setup(logFile, viper.GetString("logLevel"), otelLogProvider)
	logger = logManager.Logger()
	logger.Info("Logging to file", "path", logFilePath, "version", CurrentVersion, "buildDate", BuildDate)

	zlog := zerolog.New(logFile).With().Timestamp().Logger()

	if err := run(logManager, zlog, otelProvider, logsDir); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(logManager *logging.Manager, zlog zerolog.Logger, otelProvider *intOtel.Provider, logsDir string) error {
	logger := logManager.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storageCfg, err := config.GetStorageConfig()
	if err != nil {
		return fmt.Errorf("error reading storage config: %w", err)
	}
	backend, err := storage.NewBackend(storageCfg, zlog)
	if err != nil {
		return fmt.Errorf("error creating storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("error initializing storage backend: %w", err)
	}
	defer backend.Close()
	logger.Info("Storage backend initialized", "type", storageCfg.Type)

	var influx *telemetry.Manager
	if viper.GetBool("influx.enabled") {
		influx = telemetry.NewManager(zlog, filepath.Join(logsDir, "telemetry_backup.lp.gz"))
		if err := influx.Connect(); err != nil {
			logger.Warn("InfluxDB unavailable, flight telemetry disabled", "error", err)
			influx = nil
		} else {
			defer influx.Close()
		}
	}

	var uploader *api.Client
	if serverURL := viper.GetString("api.serverUrl"); serverURL != "" {
		uploader = api.New(serverURL, viper.GetString("api.apiKey"))
		if err := uploader.Healthcheck(); err != nil {
			logger.Info("Recording frontend is offline", "error", err)
		} else {
			logger.Info("Recording frontend is online")
		}
	}

	roundCtx := round.NewContext()

	// Attach round state to every log record.
	logManager.GetRoundID = roundCtx.ID
	logManager.GetPhase = func() string { return string(roundCtx.GetPhase()) }

	registry := params.New(rand.Uint64)
	pad := input.NewGamepad(input.Mapping{
		AxisStrafeX:    viper.GetInt("gamepad.axisStrafeX"),
		AxisStrafeY:    viper.GetInt("gamepad.axisStrafeY"),
		AxisRoll:       viper.GetInt("gamepad.axisRoll"),
		AxisPitch:      viper.GetInt("gamepad.axisPitch"),
		ButtonYawLeft:  viper.GetInt("gamepad.buttonYawLeft"),
		ButtonYawRight: viper.GetInt("gamepad.buttonYawRight"),
		ButtonRodUp:    viper.GetInt("gamepad.buttonRodUp"),
		ButtonRodDown:  viper.GetInt("gamepad.buttonRodDown"),
		ButtonStart:    viper.GetInt("gamepad.buttonStart"),
	}, viper.GetFloat64("sim.joystickDeadZone"))
	controls := input.NewControls(pad)

	eventDispatcher, err := dispatcher.New(logging.NewDispatcherLogger(logger))
	if err != nil {
		return fmt.Errorf("error creating dispatcher: %w", err)
	}
	server.RegisterHandlers(eventDispatcher, controls, registry)

	hub := server.NewHub(logManager)
	srv := server.New(viper.GetString("server.listenAddr"), eventDispatcher, hub, logManager)

	rec := recorder.NewManager(recorder.Dependencies{
		LogManager: logManager,
		Backend:    backend,
		Telemetry:  influx,
		Uploader:   uploader,
	})
	go rec.Run(ctx, recorder.DefaultFlushInterval)

	sim := game.New(game.Dependencies{
		LogManager: logManager,
		Params:     registry,
		Controls:   controls,
		Recorder:   rec,
		RoundCtx:   roundCtx,
		Broadcast:  hub,
	}, time.Duration(viper.GetInt("sim.tickMillis"))*time.Millisecond)
	go sim.Run(ctx)

	statusMonitor := monitor.NewService(monitor.Dependencies{
		LogManager: logManager,
		RoundCtx:   roundCtx,
		Recorder:   rec,
		Sessions:   hub,
		Telemetry:  influx,
		StatusDir:  logsDir,
	})
	if err := statusMonitor.Start(time.Second); err != nil {
		logger.Error("Failed to start status monitor", "error", err)
	}
	defer statusMonitor.Stop()

	err = srv.Start(ctx)

	// Drain whatever the tick queue still holds before closing sinks.
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if flushErr := rec.Flush(flushCtx); flushErr != nil {
		logger.Error("Final telemetry flush failed", "error", flushErr)
	}
	if otelProvider != nil {
		if otelErr := otelProvider.Shutdown(flushCtx); otelErr != nil {
			logger.Warn("Failed to shut down OTel provider", "error", otelErr)
		}
	}
	return err
}
