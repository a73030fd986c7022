package logger

import (
	"io"
	"os"
	"time"

	"github.com/natefinch/lumberjack"
	logrus "github.com/sirupsen/logrus"
	gormlogger "gorm.io/gorm/logger"
)

// Options control where and how logs are written.
type Options struct {
	Level  string
	Format string // text | json
	File   string // rotating file when set, stdout otherwise
}

var output io.Writer = os.Stdout

// Setup initializes Logrus, writing to a rotating file when one is configured.
func Setup(opts Options) {
	if opts.File != "" {
		output = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 7,
			MaxAge:     7, // days
			Compress:   true,
		}
	} else {
		output = os.Stdout
	}
	logrus.SetOutput(output)

	if opts.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
		logrus.WithField("level", opts.Level).Warn("unknown log level, using info")
	}
	logrus.SetLevel(level)
}

// Writer is the sink Setup configured. The HTTP access log shares it.
func Writer() io.Writer {
	return output
}

// GormLogger routes GORM's SQL logging through Logrus.
func GormLogger(slowThreshold time.Duration) gormlogger.Interface {
	level := gormlogger.Warn
	if logrus.GetLevel() >= logrus.DebugLevel {
		level = gormlogger.Info
	}
	return gormlogger.New(logrus.StandardLogger(), gormlogger.Config{
		SlowThreshold:             slowThreshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
