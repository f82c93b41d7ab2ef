package actorutil

import (
	"github.com/asynkron/protoactor-go/actor"
)

// Stash keeps messages an actor cannot handle in its current state, with their senders.
// A bounded stash drops its oldest message once full.
type Stash struct {
	stash []stashElem
	limit int
}

type stashElem struct {
	msg    any
	sender *actor.PID
}

func NewBoundedStash(limit int) *Stash {
	return &Stash{limit: limit}
}

// Stash reports whether an older message had to be dropped to make room.
func (stash *Stash) Stash(ctx actor.Context, msg any) bool {
	dropped := false
	if stash.limit > 0 && len(stash.stash) >= stash.limit {
		stash.stash = stash.stash[1:]
		dropped = true
	}
	stash.stash = append(stash.stash, stashElem{
		msg:    msg,
		sender: ctx.Sender(),
	})
	return dropped
}

func (stash *Stash) Len() int {
	return len(stash.stash)
}

// UnstashAll redelivers every stashed message to self, oldest first.
func (stash *Stash) UnstashAll(ctx actor.Context) {
	pending := stash.stash
	stash.stash = nil
	for _, elem := range pending {
		ctx.RequestWithCustomSender(ctx.Self(), elem.msg, elem.sender)
	}
}

func (stash *Stash) UnstashOldest(ctx actor.Context) {
	if len(stash.stash) == 0 {
		return
	}
	oldest := stash.stash[0]
	stash.stash = stash.stash[1:]
	ctx.RequestWithCustomSender(ctx.Self(), oldest.msg, oldest.sender)
}
