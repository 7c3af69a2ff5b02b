package scheduler

import (
	"fmt"
	"strings"

	"taskflow/pkg/logger"

	"github.com/robfig/cron/v3"
)

// cronLogger adapts the service logger to cron.Logger.
type cronLogger struct {
	logger *logger.Logger
}

var _ cron.Logger = cronLogger{}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("[SCHEDULER] %s%s", msg, formatKeysAndValues(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("[SCHEDULER] %s: %v%s", msg, err, formatKeysAndValues(keysAndValues))
}

func formatKeysAndValues(keysAndValues []interface{}) string {
	if len(keysAndValues) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(keysAndValues); i += 2 {
		b.WriteString(" ")
		if i+1 < len(keysAndValues) {
			fmt.Fprintf(&b, "%v=%v", keysAndValues[i], keysAndValues[i+1])
		} else {
			fmt.Fprintf(&b, "%v", keysAndValues[i])
		}
	}
	return b.String()
}
