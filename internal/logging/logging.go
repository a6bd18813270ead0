package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
)

// Log levels, ordered by verbosity.
const (
	None = iota
	Error
	Warning
	Info
	Debug
)

var currentLevel atomic.Int32

var logger = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lmicroseconds)

func init() {
	currentLevel.Store(Info)
}

// SetLevel atomically sets the global logging level, clamping to [None, Debug].
func SetLevel(level int) {
	if level < None {
		level = None
	} else if level > Debug {
		level = Debug
	}
	currentLevel.Store(int32(level))
}

// GetLevel returns the current global logging level.
func GetLevel() int {
	return int(currentLevel.Load())
}

// ParseLevel converts a level name (case-insensitive) to its integer value.
// On an unknown name it returns Info together with an error.
func ParseLevel(levelStr string) (int, error) {
	switch strings.ToLower(levelStr) {
	case "none":
		return None, nil
	case "error":
		return Error, nil
	case "warn", "warning":
		return Warning, nil
	case "info":
		return Info, nil
	case "debug":
		return Debug, nil
	default:
		return Info, fmt.Errorf("invalid log level string: '%s'", levelStr)
	}
}

// SetupLogging sets the global level from a level name. Invalid names fall
// back to Info with a warning. Returns the level that was applied.
func SetupLogging(levelStr string) int {
	level, err := ParseLevel(levelStr)
	if err != nil {
		logf(Warning, "Invalid log level '%s', defaulting to 'info'", levelStr)
	}
	SetLevel(level)
	return level
}

// SetOutput redirects the global logger, mainly for tests.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func logf(level int, format string, v ...interface{}) {
	if int32(level) > currentLevel.Load() {
		return
	}

	var prefix string
	switch level {
	case Error:
		prefix = "[ERROR] "
	case Warning:
		prefix = "[WARN] "
	case Info:
		prefix = "[INFO] "
	case Debug:
		prefix = "[DEBUG] "
	default:
		prefix = "[UNKN] "
	}

	// Debug lines carry caller information.
	if level == Debug {
		pc, file, line, ok := runtime.Caller(2)
		if ok {
			funcName := "???"
			if f := runtime.FuncForPC(pc); f != nil {
				funcName = filepath.Base(f.Name())
			}
			prefix = fmt.Sprintf("%s%s:%d:%s ", prefix, filepath.Base(file), line, funcName)
		} else {
			prefix = prefix + "???:0:??? "
		}
	}

	logger.Println(prefix + fmt.Sprintf(format, v...))
}

// Logf logs a formatted message if the given level is enabled.
func Logf(level int, format string, v ...interface{}) {
	logf(level, format, v...)
}
