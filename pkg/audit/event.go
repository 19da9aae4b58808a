// Package audit provides audit logging for the commands the agent runs
// against a device, principally mod-vlans mutations.
package audit

import (
	"fmt"
	"time"
)

// Event represents one boss command the agent carried out against a device
type Event struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	Device     string        `json:"device"`
	SwitchType string        `json:"switch_type"`
	Operation  string        `json:"operation"`
	Args       string        `json:"args,omitempty"`
	Success    bool          `json:"success"`
	Errors     []string      `json:"errors,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Severity indicates the importance of an audit event
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Filter defines criteria for querying audit events
type Filter struct {
	Device      string
	SwitchType  string
	Operation   string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent creates a new audit event for one command against one device.
func NewEvent(device, switchType, operation, args string) *Event {
	return &Event{
		ID:         generateID(),
		Timestamp:  time.Now(),
		Device:     device,
		SwitchType: switchType,
		Operation:  operation,
		Args:       args,
	}
}

// WithSuccess marks the event as successful
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithErrors records the device-reported errors and marks the event failed
// when there is at least one; an empty or nil slice marks it successful
func (e *Event) WithErrors(errs []string) *Event {
	e.Success = len(errs) == 0
	e.Errors = errs
	return e
}

// WithDuration sets the operation duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
