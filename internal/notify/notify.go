// Package notify delivers user facing success, error and info messages.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"
)

// Severity of a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Visibility per severity. Errors stay up longer than success and info.
const (
	SuccessVisibility = 3 * time.Second
	ErrorVisibility   = 4 * time.Second
	InfoVisibility    = 3 * time.Second
)

// Notification is one message for the user.
type Notification struct {
	Severity Severity
	Title    string
	Subtitle string
	Visible  time.Duration
}

func build(severity Severity, visible time.Duration, title string, subtitle []string) Notification {
	n := Notification{Severity: severity, Title: title, Visible: visible}
	if len(subtitle) > 0 {
		n.Subtitle = subtitle[0]
	}
	return n
}

// Success builds a success notification.
func Success(title string, subtitle ...string) Notification {
	return build(SeveritySuccess, SuccessVisibility, title, subtitle)
}

// Error builds an error notification.
func Error(title string, subtitle ...string) Notification {
	return build(SeverityError, ErrorVisibility, title, subtitle)
}

// Info builds an info notification.
func Info(title string, subtitle ...string) Notification {
	return build(SeverityInfo, InfoVisibility, title, subtitle)
}

// Notifier receives notifications.
type Notifier interface {
	Notify(n Notification)
}

// Nop discards notifications.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(Notification) {}

// Logger writes notifications to a zap logger.
type Logger struct {
	logger *zap.Logger
}

// NewLogger builds a logging notifier.
func NewLogger(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger}
}

// Notify implements Notifier.
func (l *Logger) Notify(n Notification) {
	fields := []zap.Field{
		zap.String("severity", string(n.Severity)),
		zap.String("title", n.Title),
		zap.Duration("visible", n.Visible),
	}
	if n.Subtitle != "" {
		fields = append(fields, zap.String("subtitle", n.Subtitle))
	}
	if n.Severity == SeverityError {
		l.logger.Warn("notification", fields...)
		return
	}
	l.logger.Info("notification", fields...)
}

// Console prints coloured notifications for terminal users.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole builds a console notifier writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

var (
	successStyle = color.New(color.FgGreen, color.Bold)
	errorStyle   = color.New(color.FgRed, color.Bold)
	infoStyle    = color.New(color.FgBlue, color.Bold)
	subtitleFmt  = color.New(color.Faint)
)

// Notify implements Notifier.
func (c *Console) Notify(n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()

	style, mark := infoStyle, "i"
	switch n.Severity {
	case SeveritySuccess:
		style, mark = successStyle, "✓"
	case SeverityError:
		style, mark = errorStyle, "✗"
	}
	_, _ = style.Fprintf(c.out, "%s %s\n", mark, n.Title)
	if n.Subtitle != "" {
		_, _ = subtitleFmt.Fprintf(c.out, "  %s\n", n.Subtitle)
	}
}

// Multi fans a notification out to every notifier.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(n Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(n)
		}
	}
}

// String renders a notification on one line.
func (n Notification) String() string {
	if n.Subtitle == "" {
		return fmt.Sprintf("[%s] %s", n.Severity, n.Title)
	}
	return fmt.Sprintf("[%s] %s: %s", n.Severity, n.Title, n.Subtitle)
}
