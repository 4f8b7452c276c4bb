package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"periph.io/x/host/v3"

	"github.com/walkure/shtnode/pkg/broker"
	"github.com/walkure/shtnode/pkg/clock"
	loggerFactory "github.com/walkure/shtnode/pkg/logger"
	"github.com/walkure/shtnode/pkg/metrics"
	"github.com/walkure/shtnode/pkg/revision"
	"github.com/walkure/shtnode/pkg/sht3x"
	"github.com/walkure/shtnode/pkg/sonoff"
	"github.com/walkure/shtnode/pkg/watchdog"

	"kernel.org/pub/linux/libs/security/libcap/cap"
)

// name of binary file populated at build-time
var binName = ""

var openConsole = loggerFactory.OpenConsole

func main() {
	var cfg Config
	cfg.RegisterFlags(flag.CommandLine)
	flag.Usage = revision.Usage(binName)
	flag.Parse()

	os.Exit(start(&cfg))
}

// start runs the node and returns the process exit code.
func start(cfg *Config) int {
	var extra []io.Writer
	if cfg.Console != "" {
		console, err := openConsole(cfg.Console, cfg.ConsoleBaud)
		if err != nil {
			loggerFactory.InitalizeLogger(cfg.LogLevel).Error("console", slog.Any("err", err))
			return 1
		}
		defer console.Close()
		extra = append(extra, console)
	}
	loggerFactory.InitalizeLogger(cfg.LogLevel, extra...)
	loggerFactory.SetD2R2Level(cfg.LogLevel)
	logger := loggerFactory.GetLogger("main")

	if err := cfg.Validate(); err != nil {
		for _, e := range multierr.Errors(err) {
			logger.Error("invalid argument", slog.Any("err", e))
		}
		return 2
	}

	c := cap.GetProc()
	logger.Info("procinfo", slog.String("cap", c.String()), slog.String("version", revision.Version()))

	logger.Info("arguments",
		slog.String("listen", cfg.Listen),
		slog.String("backend", cfg.Backend),
		slog.String("addr", fmt.Sprintf("0x%02x", cfg.Addr)),
		slog.Duration("interval", cfg.Interval),
		slog.String("mqtt", cfg.MQTT),
		slog.String("sonoff", cfg.Sonoff),
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("exit", slog.Any("err", err))
		return 1
	}
	return 0
}

func run(cfg *Config, logger *slog.Logger) (err error) {
	if _, err := host.Init(); err != nil {
		return err
	}

	bus, closer, err := openBus(cfg)
	if err != nil {
		return err
	}
	defer func() { multierr.AppendInto(&err, closer.Close()) }()

	dev, err := sht3x.New(bus, cfg.DriverOpts(loggerFactory.GetLogger("sht3x")))
	if err != nil {
		return err
	}
	logger.Info("sensor activated", slog.String("dev", dev.String()), slog.String("bus", bus.String()))

	pir, led, err := openMotion(cfg)
	if err != nil {
		return err
	}

	data := NewMetrics(metrics.Labels{"place": cfg.Place})
	var wd watchdog.Timer
	wd.Update()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sw Switcher
	if cfg.Sonoff != "" {
		d := sonoff.New(cfg.Sonoff, cfg.SonoffPort, cfg.SonoffID)
		logger.Info("relay", slog.String("dev", d.String()))
		sw = d
	}

	var pub Publisher
	var mq *broker.Broker
	if cfg.MQTT != "" {
		mq, err = broker.Dial(broker.Config{
			URL:      cfg.MQTT,
			Name:     cfg.Name,
			Username: cfg.MQTTUser,
			Password: cfg.MQTTPass,
		}, loggerFactory.GetLogger("mqtt"))
		if err != nil {
			return err
		}
		if err := mq.SubscribeSwitch(switchHandler(ctx, sw, sonoff.DefaultTimeout, loggerFactory.GetLogger("sonoff"))); err != nil {
			multierr.AppendInto(&err, mq.Close())
			return err
		}
		pub = mq
	}

	node := NewNode(dev, NodeOpts{
		Motion:    pir,
		LED:       led,
		Publisher: pub,
		Metrics:   data,
		Watchdog:  &wd,
		Interval:  cfg.Interval,
		Version:   revision.Version(),
		Logger:    loggerFactory.GetLogger("node"),
	})

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		node.Run(ctx, clock.NewMonotonic(cfg.ClockOffset), time.Millisecond)
	}()
	go watchStale(ctx, &wd, cfg.Stale, data, loggerFactory.GetLogger("watchdog"))

	mux := http.NewServeMux()
	mux.Handle("/metrics", data.Handler())
	serv := &http.Server{
		Addr:    cfg.Listen,
		Handler: mux,
	}

	go func() {
		logger.Info("server listening", slog.String("address", serv.Addr))

		if err := serv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("stop serving", slog.String("error", err.Error()))
			stop()
		}
	}()
	<-ctx.Done()
	<-loopDone

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Warn("shutting down server")

	if serr := serv.Shutdown(sctx); serr != nil {
		multierr.AppendInto(&err, serr)
		multierr.AppendInto(&err, serv.Close())
	}
	if mq != nil {
		multierr.AppendInto(&err, mq.Close())
	}
	return err
}
