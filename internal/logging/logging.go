package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// LogFile is where debug output goes when SHR_DEBUG is set
const LogFile = "shr-debug.log"

var (
	Debug   *logrus.Logger
	Scanner *logrus.Logger
	Enabled bool
)

func init() {
	// Only enable logging if SHR_DEBUG environment variable is set
	if os.Getenv("SHR_DEBUG") == "" {
		Debug = newLogger(io.Discard, logrus.PanicLevel)
		Scanner = newLogger(io.Discard, logrus.PanicLevel)
		Enabled = false
		return
	}

	Enabled = true

	level := logrus.DebugLevel
	if os.Getenv("SHR_DEBUG") == "trace" {
		level = logrus.TraceLevel
	}

	// Open the log file once for all loggers
	debugFile, err := os.OpenFile(LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		// Fallback to stderr if we can't open the file
		Debug = newLogger(os.Stderr, level)
		Scanner = newLogger(os.Stderr, level)
		return
	}

	Debug = newLogger(debugFile, level)
	Scanner = newLogger(debugFile, level)
}

func newLogger(out io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000000",
		DisableColors:   true,
	})
	return l
}
