// Package notify shows transient toasts and a single confirmation modal.
package notify

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"reelsmith-desktop/internal/eventbus"
)

// DefaultDuration is how long the convenience helpers keep a toast visible.
const DefaultDuration = 5 * time.Second

// Kind is the visual severity of a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Toast is a transient message.
type Toast struct {
	ID        int64         `json:"id"`
	Kind      Kind          `json:"type"`
	Message   string        `json:"message"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Action is one modal button. Handler may be nil.
type Action struct {
	Label   string `json:"label"`
	Style   string `json:"style,omitempty"`
	Handler func() `json:"-"`
}

// Modal is a blocking dialog with a list of actions.
type Modal struct {
	ID      int64    `json:"id"`
	Kind    Kind     `json:"type"`
	Title   string   `json:"title"`
	Message string   `json:"message"`
	Actions []Action `json:"actions"`
}

// EventType classifies notification events.
type EventType string

const (
	EventToastAdded     EventType = "toast_added"
	EventToastDismissed EventType = "toast_dismissed"
	EventModalOpened    EventType = "modal_opened"
	EventModalClosed    EventType = "modal_closed"
)

// Event describes one change to the visible notifications.
type Event struct {
	Type    EventType `json:"type"`
	Toast   *Toast    `json:"toast,omitempty"`
	Modal   *Modal    `json:"modal,omitempty"`
	ToastID int64     `json:"toastId,omitempty"`
}

// Service owns the visible toasts and the active modal.
type Service struct {
	log *slog.Logger
	bus *eventbus.Bus[Event]

	mu     sync.Mutex
	nextID int64
	toasts []Toast
	timers map[int64]*time.Timer
	modal  *Modal
	closed bool
}

// New creates an empty notification service.
func New(log *slog.Logger) *Service {
	return &Service{
		log:    log,
		bus:    eventbus.New[Event](200),
		timers: make(map[int64]*time.Timer),
	}
}

// Notify shows a toast. A positive duration removes it automatically;
// otherwise it stays until dismissed.
func (s *Service) Notify(kind Kind, message string, duration time.Duration) int64 {
	s.mu.Lock()
	s.nextID++
	toast := Toast{
		ID:        s.nextID,
		Kind:      kind,
		Message:   message,
		Duration:  duration,
		CreatedAt: time.Now(),
	}
	s.toasts = append(s.toasts, toast)
	s.mu.Unlock()

	s.log.Debug("notification", "kind", kind, "message", message)
	s.bus.Publish(Event{Type: EventToastAdded, Toast: &toast})

	// The timer starts after the added event so a dismissal is never
	// published ahead of it.
	if duration > 0 {
		s.arm(toast.ID, duration)
	}
	return toast.ID
}

func (s *Service) arm(id int64, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !slices.ContainsFunc(s.toasts, func(t Toast) bool { return t.ID == id }) {
		return
	}
	s.timers[id] = time.AfterFunc(duration, func() { s.Dismiss(id) })
}

func (s *Service) Success(message string) int64 { return s.Notify(KindSuccess, message, DefaultDuration) }
func (s *Service) Info(message string) int64    { return s.Notify(KindInfo, message, DefaultDuration) }
func (s *Service) Warning(message string) int64 { return s.Notify(KindWarning, message, DefaultDuration) }
func (s *Service) Error(message string) int64   { return s.Notify(KindError, message, DefaultDuration) }

// Dismiss removes a toast. It reports false when the toast is not visible.
func (s *Service) Dismiss(id int64) bool {
	s.mu.Lock()
	idx := -1
	for i, toast := range s.toasts {
		if toast.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.toasts = append(s.toasts[:idx], s.toasts[idx+1:]...)
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.bus.Publish(Event{Type: EventToastDismissed, ToastID: id})
	return true
}

// Toasts returns the visible toasts, oldest first.
func (s *Service) Toasts() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Toast(nil), s.toasts...)
}

// Confirm opens a modal, replacing any modal already open.
func (s *Service) Confirm(kind Kind, title, message string, actions ...Action) int64 {
	s.mu.Lock()
	s.nextID++
	modal := &Modal{
		ID:      s.nextID,
		Kind:    kind,
		Title:   title,
		Message: message,
		Actions: actions,
	}
	replaced := s.modal
	s.modal = modal
	s.mu.Unlock()

	if replaced != nil {
		s.bus.Publish(Event{Type: EventModalClosed, Modal: replaced})
	}
	snapshot := *modal
	s.bus.Publish(Event{Type: EventModalOpened, Modal: &snapshot})
	return modal.ID
}

// Modal returns the open modal, or nil.
func (s *Service) Modal() *Modal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.modal == nil {
		return nil
	}
	snapshot := *s.modal
	return &snapshot
}

// ResolveModal runs the handler of the action at index and closes the modal.
func (s *Service) ResolveModal(index int) error {
	s.mu.Lock()
	modal := s.modal
	if modal == nil {
		s.mu.Unlock()
		return fmt.Errorf("no modal is open")
	}
	if index < 0 || index >= len(modal.Actions) {
		s.mu.Unlock()
		return fmt.Errorf("action index %d out of range", index)
	}
	action := modal.Actions[index]
	s.modal = nil
	s.mu.Unlock()

	s.bus.Publish(Event{Type: EventModalClosed, Modal: modal})
	if action.Handler != nil {
		action.Handler()
	}
	return nil
}

// CloseModal closes the open modal without running any action.
func (s *Service) CloseModal() {
	s.mu.Lock()
	modal := s.modal
	s.modal = nil
	s.mu.Unlock()

	if modal != nil {
		s.bus.Publish(Event{Type: EventModalClosed, Modal: modal})
	}
}

// Subscribe registers an observer for notification events.
func (s *Service) Subscribe(fn func(eventbus.Envelope[Event])) func() {
	return s.bus.Subscribe(fn)
}

// EventsSince returns buffered events newer than seq.
func (s *Service) EventsSince(seq int64) []eventbus.Envelope[Event] {
	return s.bus.Since(seq)
}

// Close stops pending auto-dismiss timers.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}
