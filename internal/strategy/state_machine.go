package strategy

import "sync"

type StateMachine struct {
	mu    sync.Mutex
	State State
}

func NewStateMachine() *StateMachine {
	return &StateMachine{State: StateIdle}
}

func (s *StateMachine) Apply(event Event) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = nextState(s.State, event)
	return s.State
}

func (s *StateMachine) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.State
}

func (s *StateMachine) SetState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = state
}

// stateValue maps a state to its numeric gauge reading.
func stateValue(s State) float64 {
	switch s {
	case StatePublicSent:
		return 1
	case StatePublicStanding:
		return 2
	case StateAwaitingHedge:
		return 3
	}
	return 0
}

func nextState(current State, event Event) State {
	switch current {
	case StateIdle:
		if event == EventTakerSent {
			return StatePublicSent
		}
	case StatePublicSent:
		switch event {
		case EventTakerFilled:
			return StateAwaitingHedge
		case EventTakerRested:
			return StatePublicStanding
		case EventAbandon:
			return StateIdle
		}
	case StatePublicStanding:
		// A rested taker may still fill before its cancel is processed.
		switch event {
		case EventTakerFilled:
			return StateAwaitingHedge
		case EventAbandon:
			return StateIdle
		}
	case StateAwaitingHedge:
		switch event {
		case EventHedgePlaced:
			return StateIdle
		case EventAbandon:
			return StateIdle
		}
	}
	return current
}
