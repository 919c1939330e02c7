package testutil

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// StubHasher "hashes" by prefixing. It keeps service tests free of bcrypt's cost.
type StubHasher struct{}

func (StubHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (StubHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return errors.New("password mismatch")
	}
	return nil
}

// RecordingNotifier records welcome notifications. Err, when set, is
// returned from every send after recording it.
type RecordingNotifier struct {
	mu     sync.Mutex
	sent   []string
	Err    error
	signal chan struct{}
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{signal: make(chan struct{}, 16)}
}

func (n *RecordingNotifier) SendWelcome(email string) error {
	n.mu.Lock()
	n.sent = append(n.sent, email)
	err := n.Err
	n.mu.Unlock()

	select {
	case n.signal <- struct{}{}:
	default:
	}
	return err
}

// Sent returns the addresses notified so far.
func (n *RecordingNotifier) Sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent...)
}

// WaitFor blocks until count notifications were sent or timeout elapses,
// and reports whether the count was reached.
func (n *RecordingNotifier) WaitFor(count int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if len(n.Sent()) >= count {
			return true
		}
		select {
		case <-n.signal:
		case <-deadline:
			return len(n.Sent()) >= count
		}
	}
}

// RecordingLogger captures log messages for assertions.
type RecordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *RecordingLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var b strings.Builder
	b.WriteString(level + " " + msg)
	for i := 0; i+1 < len(args); i += 2 {
		b.WriteString(" ")
		b.WriteString(toString(args[i]))
		b.WriteString("=")
		b.WriteString(toString(args[i+1]))
	}
	l.entries = append(l.entries, b.String())
}

func (l *RecordingLogger) Debug(msg string, args ...any) { l.record("DEBUG", msg, args) }
func (l *RecordingLogger) Info(msg string, args ...any)  { l.record("INFO", msg, args) }
func (l *RecordingLogger) Warn(msg string, args ...any)  { l.record("WARN", msg, args) }
func (l *RecordingLogger) Error(msg string, args ...any) { l.record("ERROR", msg, args) }

// Entries returns every recorded line as "LEVEL msg k=v ...".
func (l *RecordingLogger) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

// Contains reports whether any entry contains substr.
func (l *RecordingLogger) Contains(substr string) bool {
	for _, e := range l.Entries() {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

func toString(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(v)
}
