package logger

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"
)

type LogLevel string

const (
	LevelInfo    LogLevel = "INFO"
	LevelSuccess LogLevel = "SUCCESS"
	LevelWarning LogLevel = "WARNING"
	LevelError   LogLevel = "ERROR"
	LevelDebug   LogLevel = "DEBUG"
	LevelNotice  LogLevel = "NOTICE"
)

// Traffic directions for Trafficf.
const (
	Inbound  = "-->"
	Outbound = "<--"
)

// Verbosity thresholds, as counted by repeated -v flags.
const (
	VerboseNotice  = 1
	VerboseTraffic = 2
	VerboseDebug   = 3
)

var colorMap = map[LogLevel]func(a ...interface{}) string{
	LevelInfo:    color.New(color.FgBlue).SprintFunc(),
	LevelSuccess: color.New(color.FgGreen).SprintFunc(),
	LevelWarning: color.New(color.FgYellow).SprintFunc(),
	LevelError:   color.New(color.FgRed).SprintFunc(),
	LevelDebug:   color.New(color.FgCyan).SprintFunc(),
	LevelNotice:  color.New(color.FgMagenta).SprintFunc(),
}

var (
	inboundColor  = color.New(color.FgHiBlack).SprintFunc()
	outboundColor = color.New(color.FgHiWhite).SprintFunc()
)

// Logger writes leveled, colored lines. Warnings and errors are mirrored
// to an error log file when one is configured.
type Logger struct {
	mu        sync.Mutex
	out       io.Writer
	verbosity int
	errFile   *os.File
	errLog    *stdlog.Logger
}

// New returns a Logger writing to out.
func New(out io.Writer, verbosity int) *Logger {
	return &Logger{out: out, verbosity: verbosity}
}

var std = New(color.Output, 0)

// Default returns the process logger used by the package functions.
func Default() *Logger { return std }

func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	l.out = w
	l.mu.Unlock()
}

func (l *Logger) SetVerbosity(v int) {
	if v > VerboseDebug {
		v = VerboseDebug
	}
	l.mu.Lock()
	l.verbosity = v
	l.mu.Unlock()
}

func (l *Logger) Verbosity() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.verbosity
}

// SetErrorLog opens path for appending and mirrors warnings and errors to it.
func (l *Logger) SetErrorLog(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open error log %s: %w", path, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.errFile != nil {
		l.errFile.Close()
	}
	l.errFile = f
	l.errLog = stdlog.New(f, "", 0)
	return nil
}

// Close releases the error log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.errFile == nil {
		return nil
	}
	err := l.errFile.Close()
	l.errFile, l.errLog = nil, nil
	return err
}

func (l *Logger) enabled(level LogLevel) bool {
	switch level {
	case LevelDebug:
		return l.verbosity >= VerboseDebug
	case LevelNotice:
		return l.verbosity >= VerboseNotice
	}
	return true
}

func (l *Logger) logMessage(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled(level) {
		return
	}

	message := fmt.Sprintf(format, args...)
	fmt.Fprintln(l.out, colorMap[level](fmt.Sprintf("[%s] ", level))+message)

	if (level == LevelError || level == LevelWarning) && l.errLog != nil {
		timestamp := time.Now().Format("2006-01-02 15:04:05")
		l.errLog.Printf("[%s] %s: %s", level, timestamp, message)
	}
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.logMessage(LevelInfo, format, args...)
}

func (l *Logger) Successf(format string, args ...interface{}) {
	l.logMessage(LevelSuccess, format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logMessage(LevelWarning, format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logMessage(LevelError, format, args...)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logMessage(LevelDebug, format, args...)
}

func (l *Logger) Noticef(format string, args ...interface{}) {
	l.logMessage(LevelNotice, format, args...)
}

// Trafficf logs one protocol line as "[IRC --> nick] line".
func (l *Logger) Trafficf(dir, nick, line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.verbosity < VerboseTraffic {
		return
	}
	tag := fmt.Sprintf("[IRC %s %s] ", dir, nick)
	if dir == Inbound {
		tag = inboundColor(tag)
	} else {
		tag = outboundColor(tag)
	}
	fmt.Fprintln(l.out, tag+line)
}

func Infof(format string, args ...interface{})    { std.Infof(format, args...) }
func Successf(format string, args ...interface{}) { std.Successf(format, args...) }
func Warnf(format string, args ...interface{})    { std.Warnf(format, args...) }
func Errorf(format string, args ...interface{})   { std.Errorf(format, args...) }
func Debugf(format string, args ...interface{})   { std.Debugf(format, args...) }
func Noticef(format string, args ...interface{})  { std.Noticef(format, args...) }

// GetColorFunc returns a console color function by name.
func GetColorFunc(name string) func(a ...interface{}) string {
	switch name {
	case "cyan":
		return color.New(color.FgCyan).SprintFunc()
	case "green":
		return color.New(color.FgGreen).SprintFunc()
	case "yellow":
		return color.New(color.FgYellow).SprintFunc()
	case "red":
		return color.New(color.FgRed).SprintFunc()
	case "blue":
		return color.New(color.FgBlue).SprintFunc()
	}
	return color.New(color.FgWhite).SprintFunc()
}
