package fish

import (
	"sync"
	"time"
)

// transition is the single outstanding timed move to a successor state.
type transition struct {
	successor State
	deadline  time.Time
	timer     Timer
	gen       uint64
}

// Machine derives the fish state from goal progress. Threshold crossings
// pass through a transient state for a fixed duration before settling.
// At most one transition is pending at any time; starting another one or
// forcing a steady state stops it, and a superseded callback does nothing.
//
// Machine is safe for concurrent use.
type Machine struct {
	mu    sync.Mutex
	sched Scheduler

	state         State
	initialized   bool
	thrivingShown bool
	pending       *transition
	gen           uint64

	subs    map[int]func(State)
	nextSub int
}

// NewMachine returns a machine in the neutral Living state. A nil scheduler
// uses WallClock.
func NewMachine(sched Scheduler) *Machine {
	if sched == nil {
		sched = WallClock
	}
	return &Machine{
		sched: sched,
		state: Living,
		subs:  make(map[int]func(State)),
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ThrivingShown reports whether the thriving transition has completed in
// the current excursion above the thriving threshold.
func (m *Machine) ThrivingShown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.thrivingShown
}

// Pending returns the successor and deadline of the outstanding transition.
func (m *Machine) Pending() (State, time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return 0, time.Time{}, false
	}
	return m.pending.successor, m.pending.deadline, true
}

// Subscribe registers fn to be called after every state change. The
// returned function removes the subscription.
func (m *Machine) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Update re-evaluates the state for a new progress value. goalSet is false
// when no positive savings goal is configured.
func (m *Machine) Update(progress float64, goalSet bool) State {
	m.mu.Lock()
	prev := m.state

	switch {
	case !goalSet:
		m.settleLocked(Living)

	case !m.initialized:
		m.initialized = true
		m.settleLocked(SteadyState(progress))
		m.thrivingShown = m.state == Thriving

	case progress < DeadThreshold && m.state != Dead && m.state != Dying:
		m.beginLocked(Dying, Dead, DyingDuration)

	case progress >= ThrivingThreshold && m.state != Thriving && m.state != BecomingThriving:
		m.beginLocked(BecomingThriving, Thriving, BecomingThrivingDuration)

	case progress >= DeadThreshold && progress < ThrivingThreshold && m.state != Living && m.state != Improving:
		if m.state == Dead {
			m.beginLocked(Improving, Living, ImprovingDuration)
		} else {
			m.settleLocked(Living)
		}
		m.thrivingShown = false
	}

	cur := m.state
	notify := m.subscribersLocked(prev != cur)
	m.mu.Unlock()

	for _, fn := range notify {
		fn(cur)
	}
	return cur
}

// Stop cancels any pending transition, leaving the current state in place.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked()
}

func (m *Machine) settleLocked(s State) {
	m.cancelLocked()
	m.state = s
}

func (m *Machine) beginLocked(transient, successor State, d time.Duration) {
	m.cancelLocked()
	m.gen++
	gen := m.gen
	m.state = transient
	m.pending = &transition{
		successor: successor,
		deadline:  m.sched.Now().Add(d),
		gen:       gen,
	}
	m.pending.timer = m.sched.AfterFunc(d, func() { m.complete(gen) })
}

func (m *Machine) cancelLocked() {
	if m.pending == nil {
		return
	}
	if m.pending.timer != nil {
		m.pending.timer.Stop()
	}
	m.pending = nil
	m.gen++
}

func (m *Machine) complete(gen uint64) {
	m.mu.Lock()
	if m.pending == nil || m.pending.gen != gen {
		m.mu.Unlock()
		return
	}
	prev := m.state
	m.state = m.pending.successor
	m.pending = nil
	if m.state == Thriving {
		m.thrivingShown = true
	}
	cur := m.state
	notify := m.subscribersLocked(prev != cur)
	m.mu.Unlock()

	for _, fn := range notify {
		fn(cur)
	}
}

func (m *Machine) subscribersLocked(changed bool) []func(State) {
	if !changed || len(m.subs) == 0 {
		return nil
	}
	out := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		out = append(out, fn)
	}
	return out
}
