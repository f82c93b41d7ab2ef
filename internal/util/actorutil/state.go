package actorutil

import (
	"github.com/asynkron/protoactor-go/actor"
)

// ActorWithStates tracks named behaviors so the current one can be reported.
type ActorWithStates struct {
	Behavior actor.Behavior
	states   []ActorState
}

type ActorState interface {
	Name() string
	Receive(actor.Context)
}

func NewActorWithStates() ActorWithStates {
	return ActorWithStates{Behavior: actor.NewBehavior()}
}

func (s *ActorWithStates) Become(state ActorState) {
	s.states = []ActorState{state}
	s.Behavior.Become(state.Receive)
}

func (s *ActorWithStates) BecomeStacked(state ActorState) {
	s.states = append(s.states, state)
	s.Behavior.BecomeStacked(state.Receive)
}

func (s *ActorWithStates) UnbecomeStacked() {
	if len(s.states) > 1 {
		s.states = s.states[:len(s.states)-1]
	}
	s.Behavior.UnbecomeStacked()
}

// StateName of the active behavior, empty before the first Become.
func (s *ActorWithStates) StateName() string {
	if len(s.states) == 0 {
		return ""
	}
	return s.states[len(s.states)-1].Name()
}

// NamedState adapts a receive function to ActorState.
type NamedState struct {
	StateName string
	Fn        actor.ReceiveFunc
}

func (n NamedState) Name() string {
	return n.StateName
}

func (n NamedState) Receive(ctx actor.Context) {
	n.Fn(ctx)
}
