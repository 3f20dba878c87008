package logger

import (
	"io"
	"os"
	"time"

	"github.com/natefinch/lumberjack"
	logrus "github.com/sirupsen/logrus"
	gormlogger "gorm.io/gorm/logger"
)

// Setup initializes Logrus. A non-empty file path writes through a
// rotating file, otherwise logs go to stderr.
func Setup(file, level string) io.Writer {
	var out io.Writer = os.Stderr
	if file != "" {
		out = &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // megabytes
			MaxBackups: 7,  // keep up to 7 old files
			MaxAge:     7,  // days
			Compress:   true,
		}
	}

	logrus.SetOutput(out)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithField("level", level).Warn("unknown LOG_LEVEL, using info")
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	return out
}

// GormLogger routes GORM's slow-query and error output through the
// standard Logrus logger.
func GormLogger(level gormlogger.LogLevel) gormlogger.Interface {
	return gormlogger.New(logrus.StandardLogger(), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}
