package logger

import (
	"fmt"
	"time"

	"github.com/fatih/color"
)

var (
	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	stampColor   = color.New(color.FgHiBlack)
)

// Info logs a general message.
func Info(format string, args ...interface{}) {
	write(infoColor, "INFO", format, args...)
}

// Success logs a completed workflow step.
func Success(format string, args ...interface{}) {
	write(successColor, "OK", format, args...)
}

// Warn logs a skipped or degraded step.
func Warn(format string, args ...interface{}) {
	write(warnColor, "WARN", format, args...)
}

// Error logs a failure that was contained at the call site.
func Error(format string, args ...interface{}) {
	write(errorColor, "ERROR", format, args...)
}

func write(c *color.Color, level, format string, args ...interface{}) {
	stamp := stampColor.Sprintf("[%s]", time.Now().Format("15:04:05"))
	fmt.Fprintf(color.Output, "%s %s\n", stamp, c.Sprintf("[%s] %s", level, fmt.Sprintf(format, args...)))
}
