package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/walkure/shtnode/pkg/clock"
	loggerFactory "github.com/walkure/shtnode/pkg/logger"
	"github.com/walkure/shtnode/pkg/revision"
	"github.com/walkure/shtnode/pkg/sht3x"
	"github.com/walkure/shtnode/pkg/wire"
)

var busNum = flag.Int("bus", 1, "/dev/i2c-N bus number")
var addr = flag.Uint("addr", uint(sht3x.DefaultAddress), "SHT3x I2C address")
var repeat = flag.Uint("repeatability", uint(sht3x.RepeatabilityMedium), "measurement command LSB")
var cycles = flag.Uint64("cycles", 5, "measurement cycles of the polled driver")
var logLevel = flag.String("loglevel", "INFO", "Log Level")

// name of binary file populated at build-time
var binName = ""

func main() {
	flag.Usage = revision.Usage(binName)
	flag.Parse()

	loggerFactory.InitalizeLogger(*logLevel)
	loggerFactory.SetD2R2Level(*logLevel)
	logger := loggerFactory.GetLogger("main")

	if err := validateFlags(*addr, *repeat); err != nil {
		logger.Error("invalid argument", slog.Any("err", err))
		os.Exit(2)
	}

	res, err := check(logger)
	if err != nil {
		logger.Error("check failed", slog.Any("err", err))
		os.Exit(1)
	}

	fmt.Printf("reference  %6.2f°C %6.2f%%RH\n", res.RefTemp, res.RefHumid)
	fmt.Printf("polled     %6.2f°C %6.2f%%RH (%d cycles in %s)\n",
		res.Reading.Temperature, res.Reading.Humidity, res.Stats.Cycles, res.Elapsed)
	fmt.Printf("stats      %+v\n", res.Stats)

	if !res.Agree() {
		logger.Warn("drivers disagree")
		os.Exit(1)
	}
}

func check(logger *slog.Logger) (Result, error) {
	var res Result

	w, dev, err := wire.OpenD2R2(uint8(*addr), *busNum)
	if err != nil {
		return res, err
	}
	defer dev.Close()

	ref := NewReference(dev)
	if err := ref.Reset(); err != nil {
		return res, err
	}
	// Soft reset takes up to 1.5ms.
	time.Sleep(2 * time.Millisecond)

	st, err := ref.Status()
	if err != nil {
		return res, err
	}
	logger.Info("status register", slog.String("flags", st.String()))

	rep := sht3x.Repeatability(*repeat)
	if res.RefTemp, res.RefHumid, err = ref.ReadTemperatureAndRelativeHumidity(repeatability(rep)); err != nil {
		return res, err
	}

	opts := sht3x.DefaultOpts
	opts.Addr = uint16(*addr)
	opts.Repeatability = rep
	opts.Logger = loggerFactory.GetLogger("sht3x")
	sd, err := sht3x.New(w, &opts)
	if err != nil {
		return res, err
	}
	defer sd.Halt()

	start := time.Now()
	res.Reading, err = poll(sd, clock.NewMonotonic(0), *cycles, *cycles*1000, func() { time.Sleep(time.Millisecond) })
	res.Elapsed = time.Since(start).Round(time.Millisecond)
	res.Stats = sd.Stats()
	if err != nil {
		return res, fmt.Errorf("%w (last bus error: %v)", err, w.LastErr())
	}
	return res, nil
}
