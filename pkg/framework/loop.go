package framework

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is the default period between iterations.
const DefaultInterval = 100 * time.Millisecond

// Loop runs controllers periodically and hosts runnables.
type Loop struct {
	Interval time.Duration

	controllers [PriorityLevels][]Controller
	runners     []Runnable

	lock     sync.Mutex
	messages []Message
	wakeUpCh chan struct{}
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

var loopCtxKey = &Loop{}

// LoopCtlFrom gets LoopControl from the context passed to runnables.
func LoopCtlFrom(ctx context.Context) LoopControl {
	return ctx.Value(loopCtxKey).(LoopControl)
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultInterval, wakeUpCh: make(chan struct{}, 1)}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers at the priority level.
// Controllers implementing Runnable are also run in background.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	l.controllers[priorityLevel] = append(l.controllers[priorityLevel], ctls...)
	for _, ctl := range ctls {
		if runner, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds background runnables.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// PostMessage implements LoopControl.
func (l *Loop) PostMessage(msg Message) {
	l.lock.Lock()
	l.messages = append(l.messages, msg)
	l.lock.Unlock()
	l.TriggerNext()
}

// TriggerNext implements LoopControl.
func (l *Loop) TriggerNext() {
	l.lock.Lock()
	if l.wakeUpCh == nil {
		l.wakeUpCh = make(chan struct{}, 1)
	}
	ch := l.wakeUpCh
	l.lock.Unlock()
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	l.lock.Lock()
	if l.wakeUpCh == nil {
		l.wakeUpCh = make(chan struct{}, 1)
	}
	wakeUpCh := l.wakeUpCh
	l.lock.Unlock()

	runCtx, cancel := context.WithCancel(context.WithValue(ctx, loopCtxKey, LoopControl(l)))
	runner := NewRunnerWith(runCtx).Go(l.runners...)
	var failCh chan error
	if len(l.runners) > 0 {
		failCh = make(chan error, 1)
		go func() {
			// any runner quitting early stops the loop
			failCh <- runner.Wait()
		}()
	}

	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			cancel()
			if failCh != nil {
				<-failCh
			}
			return ctx.Err()
		case err := <-failCh:
			cancel()
			if err == nil {
				err = ctx.Err()
			}
			return err
		case <-ticker.C:
			l.RunIteration(ctx)
		case <-wakeUpCh:
			l.RunIteration(ctx)
		}
	}
}

// RunOrFail runs the loop until SIGINT/SIGTERM and exits on error.
func (l *Loop) RunOrFail() {
	r := NewRunner().HandleSignals()
	if err := r.Go(l).Wait(); err != nil {
		log.Fatalln(err)
	}
}

// RunIteration runs all controllers once with messages posted so far.
func (l *Loop) RunIteration(ctx context.Context) {
	iter := &loopIteration{loop: l, time: time.Now()}
	l.lock.Lock()
	iter.messages, l.messages = l.messages, nil
	l.lock.Unlock()
	iter.ctx = ctx
	for lv, ctls := range l.controllers {
		iter.priorityLevel = lv
		for _, ctl := range ctls {
			if err := ctl.Control(iter); err != nil {
				glog.Errorf("controller error: %v", err)
			}
		}
	}
	if len(iter.messages) > 0 {
		glog.V(3).Infof("%d messages not consumed", len(iter.messages))
	}
}

type loopIteration struct {
	loop          *Loop
	ctx           context.Context
	time          time.Time
	priorityLevel int
	messages      []Message
}

func (t *loopIteration) Context() context.Context { return t.ctx }
func (t *loopIteration) Time() time.Time          { return t.time }
func (t *loopIteration) PriorityLevel() int       { return t.priorityLevel }
func (t *loopIteration) Messages() MessageStore   { return t }
func (t *loopIteration) PostMessage(msg Message)  { t.loop.PostMessage(msg) }
func (t *loopIteration) TriggerNext()             { t.loop.TriggerNext() }
func (t *loopIteration) Len() int                 { return len(t.messages) }

func (t *loopIteration) Take(fn func(Message) bool) {
	remains := t.messages[:0]
	for _, msg := range t.messages {
		if !fn(msg) {
			remains = append(remains, msg)
		}
	}
	for i := len(remains); i < len(t.messages); i++ {
		t.messages[i] = nil
	}
	t.messages = remains
}
