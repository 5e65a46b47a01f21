package pipeline

import (
	"log/slog"
	"sync"
)

// Level is the severity of a notice
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a user visible message
type Notice struct {
	Level   Level
	Message string
	// Name is the file the notice is about, if any
	Name string
	Err  error
}

// Notifier shows notices to the user
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to the Notifier interface
type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// LogNotifier writes notices to a structured logger
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(n Notice) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	args := make([]any, 0, 4)
	if n.Name != "" {
		args = append(args, "file", n.Name)
	}
	if n.Err != nil {
		args = append(args, "err", n.Err)
	}
	switch n.Level {
	case LevelError:
		logger.Error(n.Message, args...)
	case LevelWarning:
		logger.Warn(n.Message, args...)
	default:
		logger.Info(n.Message, args...)
	}
}

// Recorder keeps every notice it receives. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns a copy of the recorded notices
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Multi fans notices out to several notifiers
type Multi []Notifier

func (m Multi) Notify(n Notice) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(n)
		}
	}
}
