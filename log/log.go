/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const logChanBufferSize = 512

var exitHandler = func() { os.Exit(-1) }

// Logger represents a common logger interface.
type Logger interface {
	io.Closer

	// Level returns current logger level.
	Level() Level

	// Log writes a log entry.
	Log(level Level, file string, line int, format string, args ...interface{})
}

var (
	instMu sync.RWMutex
	inst   Logger = &disabledLogger{}
)

// Set sets the default package logger.
func Set(logger Logger) {
	instMu.Lock()
	_ = inst.Close()
	inst = logger
	instMu.Unlock()
}

// Unset disables the default package logger.
func Unset() {
	Set(&disabledLogger{})
}

func instance() Logger {
	instMu.RLock()
	defer instMu.RUnlock()
	return inst
}

// Debugf writes a 'debug' message to configured logger.
func Debugf(format string, args ...interface{}) {
	if inst := instance(); inst.Level() <= DebugLevel {
		ci := getCallerInfo()
		inst.Log(DebugLevel, ci.filename, ci.line, format, args...)
	}
}

// Infof writes an 'info' message to configured logger.
func Infof(format string, args ...interface{}) {
	if inst := instance(); inst.Level() <= InfoLevel {
		ci := getCallerInfo()
		inst.Log(InfoLevel, ci.filename, ci.line, format, args...)
	}
}

// Warnf writes a 'warning' message to configured logger.
func Warnf(format string, args ...interface{}) {
	if inst := instance(); inst.Level() <= WarningLevel {
		ci := getCallerInfo()
		inst.Log(WarningLevel, ci.filename, ci.line, format, args...)
	}
}

// Errorf writes an 'error' message to configured logger.
func Errorf(format string, args ...interface{}) {
	if inst := instance(); inst.Level() <= ErrorLevel {
		ci := getCallerInfo()
		inst.Log(ErrorLevel, ci.filename, ci.line, format, args...)
	}
}

// Error writes an error value to configured logger.
func Error(err error) {
	if inst := instance(); inst.Level() <= ErrorLevel {
		ci := getCallerInfo()
		inst.Log(ErrorLevel, ci.filename, ci.line, "%v", err)
	}
}

// Fatalf writes a 'fatal' message to configured logger.
// Application should terminate after logging.
func Fatalf(format string, args ...interface{}) {
	ci := getCallerInfo()
	instance().Log(FatalLevel, ci.filename, ci.line, format, args...)
}

// Fatal writes an error value to configured logger.
// Application should terminate after logging.
func Fatal(err error) {
	ci := getCallerInfo()
	instance().Log(FatalLevel, ci.filename, ci.line, "%v", err)
}

type ioLogger struct {
	level   Level
	out     io.Writer
	files   []io.WriteCloser
	recCh   chan record
	closeCh chan bool
}

// New creates a logger instance writing entries to an output
// writer plus an optional set of log files.
func New(level Level, out io.Writer, files ...io.WriteCloser) Logger {
	l := &ioLogger{
		level:   level,
		out:     out,
		files:   files,
		recCh:   make(chan record, logChanBufferSize),
		closeCh: make(chan bool),
	}
	go l.loop()
	return l
}

func (l *ioLogger) Level() Level { return l.level }

func (l *ioLogger) Log(level Level, file string, line int, format string, args ...interface{}) {
	entry := record{
		level:      level,
		file:       file,
		line:       line,
		log:        fmt.Sprintf(format, args...),
		continueCh: make(chan struct{}),
	}
	select {
	case l.recCh <- entry:
		if level == FatalLevel {
			<-entry.continueCh // wait until done
		}
	default:
		break // avoid blocking...
	}
}

func (l *ioLogger) Close() error {
	close(l.closeCh)
	return nil
}

type record struct {
	level      Level
	file       string
	line       int
	log        string
	continueCh chan struct{}
}

func (l *ioLogger) loop() {
	for {
		select {
		case rec := <-l.recCh:
			t := time.Now()
			tm := t.Format("2006-01-02 15:04:05")

			line := fmt.Sprintf("%s %s [%s] %s:%d - %s\n", tm, logLevelGlyph(rec.level), logLevelAbbreviation(rec.level), rec.file, rec.line, rec.log)

			for _, w := range l.files {
				_, _ = io.WriteString(w, line)
			}
			_, _ = io.WriteString(l.out, line)
			if rec.level == FatalLevel {
				exitHandler()
			}
			close(rec.continueCh)

		case <-l.closeCh:
			for _, w := range l.files {
				_ = w.Close()
			}
			return
		}
	}
}

type callerInfo struct {
	filename string
	line     int
}

func getCallerInfo() callerInfo {
	_, file, ln, ok := runtime.Caller(2)
	if !ok {
		file = "???"
	}
	ci := callerInfo{}
	filename := filepath.Base(file)
	ci.filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	ci.line = ln
	return ci
}

func logLevelAbbreviation(level Level) string {
	switch level {
	case DebugLevel:
		return "DBG"
	case InfoLevel:
		return "INF"
	case WarningLevel:
		return "WRN"
	case ErrorLevel:
		return "ERR"
	case FatalLevel:
		return "FTL"
	default:
		// should not be reached
		return ""
	}
}

func logLevelGlyph(level Level) string {
	switch level {
	case DebugLevel:
		return "\U0001f50D"
	case InfoLevel:
		return "ℹ️"
	case WarningLevel:
		return "⚠️"
	case ErrorLevel:
		return "\U0001f4a5"
	case FatalLevel:
		return "\U0001f480"
	default:
		// should not be reached
		return ""
	}
}
