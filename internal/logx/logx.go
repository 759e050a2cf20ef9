// Package logx is a thin stderr logger, the way the teacher carries no
// third-party logging dependency anywhere in the retrieved corpus and
// instead prints through x/fmtx. This module follows the same idiom rather
// than introducing a logging library the corpus never reaches for.
package logx

import (
	"fmt"
	"os"
	"time"
)

// Level is a coarse verbosity selector, set from the agent's --verbosity
// flag (spec.md §6).
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	default:
		return LevelError
	}
}

var current = LevelInfo

// SetLevel sets the process-wide verbosity floor.
func SetLevel(l Level) { current = l }

func printf(l Level, prefix, format string, args ...any) {
	if l > current {
		return
	}
	ts := time.Now().Format("15:04:05.000")
	fmt.Fprintf(os.Stderr, "%s %s "+format+"\n", append([]any{ts, prefix}, args...)...)
}

func Errorf(format string, args ...any) { printf(LevelError, "ERR", format, args...) }
func Warnf(format string, args ...any)  { printf(LevelWarn, "WRN", format, args...) }
func Infof(format string, args ...any)  { printf(LevelInfo, "INF", format, args...) }
func Debugf(format string, args ...any) { printf(LevelDebug, "DBG", format, args...) }
