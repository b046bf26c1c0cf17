package logger

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// ANSI color codes, used only by Section/Banner which print directly to
// stdout rather than through logrus.
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[37m"
	ColorCyan   = "\033[36m"
	ColorGray   = "\033[90m"
)

// Log levels, kept as the package's own small enum so callers don't need
// to import logrus directly.
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelSuccess
)

var base = logrus.New()

func init() {
	base.SetOutput(os.Stdout)
	base.SetLevel(logrus.InfoLevel)
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
}

// SetLevel sets the minimum log level.
func SetLevel(level int) {
	switch level {
	case LevelDebug:
		base.SetLevel(logrus.DebugLevel)
	case LevelWarn:
		base.SetLevel(logrus.WarnLevel)
	case LevelError:
		base.SetLevel(logrus.ErrorLevel)
	default:
		base.SetLevel(logrus.InfoLevel)
	}
}

// SetTimeFormat sets the timestamp format used in log lines.
func SetTimeFormat(format string) {
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: format,
	})
}

// ShowTime enables or disables the timestamp in log lines.
func ShowTime(show bool) {
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:    show,
		DisableTimestamp: !show,
	})
}

// Debug logs a debug-level message.
func Debug(format string, args ...interface{}) { base.Debugf(format, args...) }

// Info logs an info-level message.
func Info(format string, args ...interface{}) { base.Infof(format, args...) }

// Warn logs a warning-level message.
func Warn(format string, args ...interface{}) { base.Warnf(format, args...) }

// Error logs an error-level message.
func Error(format string, args ...interface{}) { base.Errorf(format, args...) }

// Success logs a success message at info level, tagged so it stands out
// in structured output.
func Success(format string, args ...interface{}) {
	base.WithField("status", "success").Infof(format, args...)
}

// Fatal logs a fatal message and exits the process.
func Fatal(format string, args ...interface{}) {
	base.Fatalf(format, args...)
}

// InfoCyan logs an info-level message, tagged for console highlighting.
func InfoCyan(format string, args ...interface{}) {
	base.WithField("highlight", true).Infof(format, args...)
}

// Section prints a section header directly to stdout.
func Section(title string) {
	border := "═══════════════════════════════════════════════════════════"
	fmt.Printf("\n%s╔%s╗%s\n", ColorCyan, border, ColorReset)
	fmt.Printf("%s║%s %-57s %s║%s\n", ColorCyan, ColorReset, title, ColorCyan, ColorReset)
	fmt.Printf("%s╚%s╝%s\n\n", ColorCyan, border, ColorReset)
}

// Banner prints the startup banner directly to stdout.
func Banner(title, version string) {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║   ██╗   ██╗████████╗██████╗                              ║
║   ██║   ██║╚══██╔══╝██╔══██╗                              ║
║   ██║   ██║   ██║   ██████╔╝                              ║
║   ██║   ██║   ██║   ██╔═══╝                               ║
║   ╚██████╔╝   ██║   ██║                                   ║
║    ╚═════╝    ╚═╝   ╚═╝                                   ║
║                                                           ║
║              %s%-37s%s║
║                    %sVersion %-7s%s                      ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, ColorCyan, title, ColorReset, ColorGreen, version, ColorReset)
}
