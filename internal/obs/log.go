package obs

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	loggerOnce sync.Once
	logger     *logrus.Logger
)

// Logger returns the shared structured logger. Output is one JSON object per
// line with "ts", "level" and "msg" keys.
func Logger() *logrus.Logger {
	loggerOnce.Do(func() {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "ts",
				logrus.FieldKeyMsg:  "msg",
			},
		})
	})
	return logger
}
