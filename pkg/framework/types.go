package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Message is anything posted to the loop for controllers to consume.
type Message interface{}

// Controller defines the abstract controlling logic.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc defines the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(ctx ControlContext) error {
	return f(ctx)
}

// ControlContext provides the context of the current iteration.
type ControlContext interface {
	// Context retrieves context.Context.
	Context() context.Context
	// Time is when the iteration started.
	Time() time.Time
	// PriorityLevel gets the current priority level.
	PriorityLevel() int
	// Messages retrieves messages posted before this iteration started.
	Messages() MessageStore

	LoopControl
}

// LoopControl exposes access to the controlling loop.
type LoopControl interface {
	// PostMessage enqueues the message for the next iteration.
	PostMessage(Message)
	// TriggerNext runs the next iteration without waiting for the interval.
	TriggerNext()
}

// MessageStore is the list of messages of an iteration.
type MessageStore interface {
	// Take calls fn with each message in order and removes those for
	// which fn returns true. Messages not taken by any controller are
	// dropped at the end of the iteration.
	Take(fn func(Message) bool)
	// Len returns the number of remaining messages.
	Len() int
}

// PriorityLevels is the total levels of priorities.
const PriorityLevels int = 8

// Predefined priority levels. Lower levels run first.
const (
	PrLvTop      int = 0
	PrLvSense    int = 2
	PrLvControl  int = 4
	PrLvActuate  int = 6
	PrLvPostProc int = PriorityLevels - 1
)
