package invoices

import (
	"sync"

	"github.com/sirupsen/logrus"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a short message meant for the user, the equivalent of a toast.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

type Notifier interface {
	Notify(n Notification)
}

// Notifications collects everything reported while serving one request.
// Each notification is also passed on to Forward when set.
type Notifications struct {
	Forward Notifier

	mu    sync.Mutex
	items []Notification
}

func (n *Notifications) Notify(note Notification) {
	n.mu.Lock()
	n.items = append(n.items, note)
	n.mu.Unlock()
	notify(n.Forward, note.Level, note.Message)
}

func (n *Notifications) Items() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.items))
	copy(out, n.items)
	return out
}

// LogNotifier writes notifications to the log, for callers without a user to show them to.
type LogNotifier struct {
	Log *logrus.Entry
}

func (l LogNotifier) Notify(n Notification) {
	entry := l.Log.WithField("notification", n.Level)
	switch n.Level {
	case LevelError:
		entry.Error(n.Message)
	case LevelWarning:
		entry.Warn(n.Message)
	default:
		entry.Info(n.Message)
	}
}

func notify(n Notifier, level Level, message string) {
	if n != nil {
		n.Notify(Notification{Level: level, Message: message})
	}
}
