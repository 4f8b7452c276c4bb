package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	d2r2 "github.com/d2r2/go-logger"
	"github.com/tarm/serial"
)

var logger = slog.Default()

// ParseLevel maps a level name such as "debug" or "WARN" onto slog. An empty or
// unknown name yields Info.
func ParseLevel(level string) slog.Level {
	var lv slog.Level

	if level == "" {
		return slog.LevelInfo
	}
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return lv
}

// InitalizeLogger installs a text logger on stdout and on every extra writer.
func InitalizeLogger(level string, extra ...io.Writer) *slog.Logger {
	var w io.Writer = os.Stdout
	if len(extra) > 0 {
		w = io.MultiWriter(append([]io.Writer{os.Stdout}, extra...)...)
	}

	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))

	return logger
}

func GetLogger(category string) *slog.Logger {
	return logger.With(slog.String("category", category))
}

// d2r2Level converts a level name for the d2r2 libraries, which keep their
// own per package loggers.
func d2r2Level(level string) d2r2.LogLevel {
	lvStr := strings.ToUpper(level)

	switch {
	case strings.HasPrefix(lvStr, "DEBUG"):
		return d2r2.DebugLevel
	case strings.HasPrefix(lvStr, "WARN"):
		return d2r2.WarnLevel
	case strings.HasPrefix(lvStr, "ERROR"):
		return d2r2.ErrorLevel
	}
	return d2r2.InfoLevel
}

// SetD2R2Level aligns the log levels of the d2r2 i2c and sht3x packages.
func SetD2R2Level(level string) {
	lv := d2r2Level(level)
	d2r2.ChangePackageLogLevel("i2c", lv)
	d2r2.ChangePackageLogLevel("sht3x", lv)
}

// OpenConsole opens a serial port to mirror the log onto.
func OpenConsole(name string, baud int) (io.WriteCloser, error) {
	port, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("open console %s: %w", name, err)
	}
	return port, nil
}
