package transfers

import (
	"github.com/hannahhoward/go-pubsub"
	"golang.org/x/xerrors"

	"github.com/Thierry61/safe-client-libs/types"
)

type appliedListeners struct {
	ps *pubsub.PubSub
}

type appliedEvt struct {
	ev *types.TransferEvent
}

type subscriberFn func(appliedEvt)

func newAppliedListeners() appliedListeners {
	ps := pubsub.New(func(event pubsub.Event, subFn pubsub.SubscriberFn) error {
		evt, ok := event.(appliedEvt)
		if !ok {
			return xerrors.Errorf("wrong type of event")
		}
		sub, ok := subFn.(subscriberFn)
		if !ok {
			return xerrors.Errorf("wrong type of subscriber")
		}
		sub(evt)
		return nil
	})
	return appliedListeners{ps: ps}
}

// onApplied registers a callback for each transfer event folded into local
// state. Callbacks run inside the actor's critical section and must not call
// back into the actor.
func (al *appliedListeners) onApplied(cb func(*types.TransferEvent)) pubsub.Unsubscribe {
	var fn subscriberFn = func(evt appliedEvt) {
		cb(evt.ev)
	}
	return al.ps.Subscribe(fn)
}

func (al *appliedListeners) fireApplied(ev *types.TransferEvent) {
	e := al.ps.Publish(appliedEvt{ev: ev})
	if e != nil {
		// In theory we shouldn't ever get an error here
		log.Errorf("unexpected error publishing applied transfer: %s", e)
	}
}
