// Package toast surfaces transient user feedback.
package toast

import (
	"sync"

	"go.uber.org/zap"
)

// Kind is the category of a toast.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Toaster shows short-lived messages to the user.
type Toaster interface {
	Success(msg string)
	Error(msg string)
	Info(msg string)
}

// LogToaster writes toasts to a zap logger.
type LogToaster struct {
	logger *zap.Logger
}

func NewLogToaster(logger *zap.Logger) *LogToaster {
	return &LogToaster{logger: logger.Named("Toast")}
}

func (t *LogToaster) Success(msg string) { t.logger.Info(msg, zap.String("kind", string(KindSuccess))) }
func (t *LogToaster) Error(msg string)   { t.logger.Error(msg, zap.String("kind", string(KindError))) }
func (t *LogToaster) Info(msg string)    { t.logger.Info(msg, zap.String("kind", string(KindInfo))) }

// Toast is one recorded message.
type Toast struct {
	Kind    Kind
	Message string
}

// Recorder keeps every toast in memory.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Success(msg string) { r.add(KindSuccess, msg) }
func (r *Recorder) Error(msg string)   { r.add(KindError, msg) }
func (r *Recorder) Info(msg string)    { r.add(KindInfo, msg) }

func (r *Recorder) add(k Kind, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, Toast{Kind: k, Message: msg})
}

// Toasts returns a copy of everything recorded so far.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}

// Count returns how many toasts of kind k were recorded.
func (r *Recorder) Count(k Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.toasts {
		if t.Kind == k {
			n++
		}
	}
	return n
}
