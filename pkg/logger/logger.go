package logger

import (
	"log"
	"os"
	"strings"
)

type Logger struct {
	info  *log.Logger
	warn  *log.Logger
	error *log.Logger
	debug *log.Logger

	debugEnabled bool
}

func New() *Logger {
	return &Logger{
		info:         log.New(os.Stdout, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile),
		warn:         log.New(os.Stderr, "WARN: ", log.Ldate|log.Ltime|log.Lshortfile),
		error:        log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile),
		debug:        log.New(os.Stdout, "DEBUG: ", log.Ldate|log.Ltime|log.Lshortfile),
		debugEnabled: strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug"),
	}
}

func (l *Logger) Info(format string, v ...interface{}) {
	l.info.Output(2, sprintf(format, v...))
}

func (l *Logger) Warn(format string, v ...interface{}) {
	l.warn.Output(2, sprintf(format, v...))
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.error.Output(2, sprintf(format, v...))
}

// Debug is a no-op unless LOG_LEVEL=debug.
func (l *Logger) Debug(format string, v ...interface{}) {
	if !l.debugEnabled {
		return
	}
	l.debug.Output(2, sprintf(format, v...))
}
