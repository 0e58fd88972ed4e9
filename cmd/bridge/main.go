package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	log "github.com/echocat/slf4g"
	"github.com/echocat/slf4g/native"
	"github.com/echocat/slf4g/native/facade/value"
	"github.com/echocat/slf4g/native/formatter"

	httpapi "github.com/richardctrimble/ha-emulated-hue/internal/adapters/input/http"
	"github.com/richardctrimble/ha-emulated-hue/internal/adapters/input/ssdp"
	"github.com/richardctrimble/ha-emulated-hue/internal/adapters/output/homeassistant"
	"github.com/richardctrimble/ha-emulated-hue/internal/adapters/output/influx"
	"github.com/richardctrimble/ha-emulated-hue/internal/adapters/output/mqtt"
	"github.com/richardctrimble/ha-emulated-hue/internal/adapters/output/persistence"
	"github.com/richardctrimble/ha-emulated-hue/internal/config"
	"github.com/richardctrimble/ha-emulated-hue/internal/domain/registry"
	"github.com/richardctrimble/ha-emulated-hue/internal/domain/service"
	"github.com/richardctrimble/ha-emulated-hue/internal/domain/translator"
	"github.com/richardctrimble/ha-emulated-hue/internal/ports"
)

const shutdownTimeout = 10 * time.Second

func main() {
	lv := value.NewProvider(native.DefaultProvider)
	lv.Consumer.Formatter.Codec = value.MappingFormatterCodec{
		"text": formatter.NewText(),
		"json": formatter.NewJson(),
	}

	var flags config.Configuration
	var configFile string

	cmd := kingpin.New("ha-emulated-hue", "Emulates a Philips Hue bridge in front of Home Assistant or MQTT entities.").
		Action(func(*kingpin.ParseContext) error {
			cfg, err := config.Load(configFile, flags)
			if err != nil {
				return err
			}
			return run(cfg)
		})
	cmd.Flag("configuration", "YAML configuration file.").
		Short('c').
		Envar("HUE_CONFIGURATION").
		PlaceHolder("<file>").
		StringVar(&configFile)
	flags.SetupConfiguration(cmd)

	cmd.Flag("log.level", "").
		SetValue(lv.Level)
	cmd.Flag("log.format", "").
		Default("text").
		SetValue(lv.Consumer.Formatter)
	cmd.Flag("log.color", "").
		Default("auto").
		SetValue(lv.Consumer.Formatter.ColorMode)

	kingpin.MustParse(cmd.Parse(os.Args[1:]))
}

func run(cfg *config.Configuration) error {
	lock, err := config.AcquireLock(cfg.LockFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.WithError(err).
				With("file", cfg.LockFile).
				Warn("Cannot release lock file.")
		}
	}()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	targets, closeTargets, err := openTargets(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeTargets()

	var recorder ports.CommandRecorder
	if cfg.Metrics.Enabled {
		r, err := influx.Connect(ctx, influx.Options{
			URL:    cfg.Metrics.URL,
			Token:  cfg.Metrics.Token,
			Org:    cfg.Metrics.Org,
			Bucket: cfg.Metrics.Bucket,
		})
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()
		recorder = r
	}

	tr := translator.New(
		translator.WithStrictCommands(cfg.API.StrictCommands),
		translator.WithCacheTTL(cfg.API.CommandCacheTTL),
	)
	bridge := service.NewBridgeService(registry.New(store), tr, targets, recorder)
	configSvc := service.NewConfigService(cfg.BridgeInfo())
	orch := service.NewOrchestrator(bridge)

	httpOpts := httpapi.Options{
		ListenIP:      cfg.ListenIP,
		ListenPort:    cfg.ListenPort,
		AllowNonLocal: cfg.API.AllowNonLocal,
		ReadTimeout:   cfg.API.ReadTimeout,
		WriteTimeout:  cfg.API.WriteTimeout,
		IdleTimeout:   cfg.API.IdleTimeout,
	}
	if cfg.API.DetectConflicts == nil || *cfg.API.DetectConflicts {
		httpOpts.Detector = httpapi.NewConflictDetector()
	}
	orch.Use(
		ssdp.NewServer(ssdp.Options{Interface: cfg.Interface}, configSvc),
		httpapi.NewServer(httpOpts, bridge, orch, configSvc),
	)

	if err := orch.Start(ctx); err != nil {
		return err
	}
	info := configSvc.Info()
	log.With("name", info.Name).
		With("serial", info.Serial).
		With("url", info.BaseURL()).
		Info("Hue bridge is ready.")

	<-ctx.Done()
	log.Info("Terminated. Going down...")

	sCtx, sCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer sCancel()
	return orch.Shutdown(sCtx)
}

func openStore(cfg *config.Configuration) (ports.Store, func(), error) {
	switch cfg.Storage.Driver {
	case config.StorageSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
			return nil, nil, err
		}
		s, err := persistence.OpenSQLiteStore(cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				log.WithError(err).
					Warn("Cannot close device database.")
			}
		}, nil
	default:
		return persistence.NewJSONStore(cfg.Storage.Path), func() {}, nil
	}
}

func openTargets(ctx context.Context, cfg *config.Configuration) (ports.TargetProvider, func(), error) {
	switch cfg.Target.Provider {
	case config.TargetMQTT:
		p, err := mqtt.Connect(ctx, mqtt.Options{
			Broker:   cfg.Target.MQTT.Broker,
			ClientID: cfg.Target.MQTT.ClientID,
			Username: cfg.Target.MQTT.Username,
			Password: cfg.Target.MQTT.Password,
			Prefix:   cfg.Target.MQTT.Prefix,
			QoS:      cfg.Target.MQTT.QoS,
		})
		if err != nil {
			return nil, nil, err
		}
		return p, func() { _ = p.Close() }, nil
	default:
		c := homeassistant.NewClient(cfg.Target.HomeAssistant.URL, cfg.Target.HomeAssistant.Token, cfg.Target.HomeAssistant.Timeout)
		if !c.IsConfigured() {
			return nil, nil, errors.New("home assistant url and token are required")
		}
		if err := c.Check(ctx); err != nil {
			// Devices show up as unreachable until Home Assistant answers.
			log.WithError(err).
				With("url", cfg.Target.HomeAssistant.URL).
				Warn("Home Assistant is not reachable yet.")
		}
		return c, func() {}, nil
	}
}
