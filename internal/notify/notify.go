package notify

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is a transient user-facing message (a toast in the admin UI)
type Notice struct {
	Level    Level         `json:"level"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration"`
	Time     time.Time     `json:"time"`
}

// Notifier receives notices from the wizard
type Notifier interface {
	Notify(n Notice)
}

func Info(msg string) Notice {
	return Notice{Level: LevelInfo, Message: msg, Duration: 2 * time.Second}
}

func Success(msg string) Notice {
	return Notice{Level: LevelSuccess, Message: msg, Duration: 3 * time.Second}
}

func Error(msg string) Notice {
	return Notice{Level: LevelError, Message: msg, Duration: 3 * time.Second}
}

// Log writes notices through slog
type Log struct{}

func (Log) Notify(n Notice) {
	switch n.Level {
	case LevelError:
		slog.Error(n.Message)
	default:
		slog.Info(n.Message, "level", n.Level)
	}
}

// Recorder keeps the most recent notices in memory
type Recorder struct {
	mu      sync.Mutex
	max     int
	notices []Notice
}

// NewRecorder keeps at most max notices; max <= 0 keeps everything
func NewRecorder(max int) *Recorder {
	return &Recorder{max: max}
}

func (r *Recorder) Notify(n Notice) {
	if n.Time.IsZero() {
		n.Time = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	if r.max > 0 && len(r.notices) > r.max {
		r.notices = r.notices[len(r.notices)-r.max:]
	}
}

// Notices returns a copy of the recorded notices, oldest first
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Last returns the newest notice
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

// Multi fans a notice out to several notifiers
type Multi []Notifier

func (m Multi) Notify(n Notice) {
	for _, nt := range m {
		nt.Notify(n)
	}
}

// Printer writes one line per notice, for terminal use
type Printer struct {
	W io.Writer
}

func (p Printer) Notify(n Notice) {
	marker := "i"
	switch n.Level {
	case LevelSuccess:
		marker = "✓"
	case LevelError:
		marker = "✗"
	}
	fmt.Fprintf(p.W, "%s %s\n", marker, n.Message)
}
