package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/walkure/shtnode/pkg/broker"
	"github.com/walkure/shtnode/pkg/clock"
	"github.com/walkure/shtnode/pkg/motion"
	"github.com/walkure/shtnode/pkg/sht3x"
	"github.com/walkure/shtnode/pkg/watchdog"
)

// Publisher receives the periodic reports.
type Publisher interface {
	PublishReport(r broker.Report) error
}

// Node is the control loop of the sensor node. Step must be called from one
// goroutine only.
type Node struct {
	dev      *sht3x.Dev
	motion   *motion.Sensor
	led      *motion.Indicator
	pub      Publisher
	metrics  *MetricData
	watchdog *watchdog.Timer
	interval uint64
	version  string
	logger   *slog.Logger

	started     bool
	lastPublish uint64
	cycles      uint64
	moving      bool
}

// NodeOpts lists the optional parts of a Node. Nil members are skipped.
type NodeOpts struct {
	Motion    *motion.Sensor
	LED       *motion.Indicator
	Publisher Publisher
	Metrics   *MetricData
	Watchdog  *watchdog.Timer
	Interval  time.Duration
	Version   string
	Logger    *slog.Logger
}

func NewNode(dev *sht3x.Dev, opts NodeOpts) *Node {
	n := &Node{
		dev:      dev,
		motion:   opts.Motion,
		led:      opts.LED,
		pub:      opts.Publisher,
		metrics:  opts.Metrics,
		watchdog: opts.Watchdog,
		interval: uint64(opts.Interval.Milliseconds()),
		version:  opts.Version,
		logger:   opts.Logger,
	}
	if n.logger == nil {
		n.logger = slog.New(slog.DiscardHandler)
	}
	if n.watchdog == nil {
		n.watchdog = &watchdog.Timer{}
	}
	return n
}

// Step advances the driver, mirrors motion onto the indicator and publishes a
// report once per interval.
func (n *Node) Step(now uint64) {
	n.dev.Update(now)

	if n.motion != nil {
		moving := n.motion.IsMovement()
		if moving != n.moving {
			n.logger.Debug("motion", slog.Bool("moving", moving))
		}
		n.moving = moving
	}
	if n.led != nil {
		if err := n.led.Set(n.moving); err != nil {
			n.logger.Warn("indicator", slog.Any("err", err))
		}
	}

	if st := n.dev.Stats(); st.Cycles != n.cycles {
		n.cycles = st.Cycles
		if n.dev.Err() == sht3x.NoError {
			n.watchdog.Update()
		}
	}

	if !n.started {
		n.started = true
		n.lastPublish = now
		return
	}
	if now-n.lastPublish < n.interval {
		return
	}
	n.lastPublish = now
	n.report()
}

func (n *Node) report() {
	code := n.dev.Err()
	r := broker.Report{
		Temp:    n.dev.Temperature(),
		Hum:     n.dev.Humidity(),
		Motion:  n.moving,
		Error:   code.String(),
		Version: n.version,
	}

	n.logger.Info("measurement",
		slog.Float64("temp", r.Temp),
		slog.Float64("hum", r.Hum),
		slog.Bool("motion", r.Motion),
		slog.String("error", r.Error),
	)

	if n.metrics != nil {
		n.metrics.UpdateReading(code, r.Temp, r.Hum)
		n.metrics.UpdateStats(n.dev.Stats())
		n.metrics.UpdateMotion(r.Motion)
	}
	if n.pub != nil {
		if err := n.pub.PublishReport(r); err != nil {
			n.logger.Warn("publish", slog.Any("err", err))
		}
	}
}

// Run steps the node every tick until ctx is done, then halts the driver and
// the indicator.
func (n *Node) Run(ctx context.Context, clk clock.Clock, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			n.dev.Halt()
			if n.led != nil {
				if err := n.led.Halt(); err != nil {
					n.logger.Warn("indicator halt", slog.Any("err", err))
				}
			}
			return
		case <-t.C:
			n.Step(clk.NowMs())
		}
	}
}

// watchStale polls tm and flags the node as stale. There is no escalation
// beyond the warning and the gauge.
func watchStale(ctx context.Context, tm *watchdog.Timer, stale time.Duration, m *MetricData, logger *slog.Logger) {
	period := stale / 4
	if period <= 0 {
		period = time.Second
	}
	t := time.NewTicker(period)
	defer t.Stop()

	wasStale := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			isStale := tm.IsElapsed(stale)
			if isStale && !wasStale {
				logger.Warn("no fresh reading", slog.Time("last", tm.Last()), slog.Duration("stale", stale))
			} else if !isStale && wasStale {
				logger.Info("readings resumed")
			}
			wasStale = isStale
			if m != nil {
				m.UpdateStale(isStale)
			}
		}
	}
}
