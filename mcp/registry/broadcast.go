package registry

// changedSignal is a bounded, many-producer/single-consumer "something
// changed" channel. Because list-changed notifications are idempotent,
// overflow drops the oldest pending signal rather than blocking the
// registering goroutine (spec.md §5 "Broadcast channels").
type changedSignal struct {
	ch chan struct{}
}

func newChangedSignal() *changedSignal {
	return &changedSignal{ch: make(chan struct{}, 1)}
}

// fire records that a change happened. Never blocks.
func (s *changedSignal) fire() {
	select {
	case s.ch <- struct{}{}:
	default:
		// A signal is already pending; list-changed is idempotent so
		// there is nothing to add.
	}
}

// C exposes the underlying channel for a consumer to range over.
func (s *changedSignal) C() <-chan struct{} {
	return s.ch
}

// resourceUpdatedSignal is the per-URI counterpart of changedSignal,
// fired when update_resource replaces a resource's content provider.
// Unlike the list-changed signal it carries the URI, so it is a string
// channel of bounded size (64) rather than a unit signal.
type resourceUpdatedSignal struct {
	ch chan string
}

func newResourceUpdatedSignal() *resourceUpdatedSignal {
	return &resourceUpdatedSignal{ch: make(chan string, 64)}
}

// fire enqueues uri, dropping the oldest queued URI if the buffer is
// full rather than blocking the caller.
func (s *resourceUpdatedSignal) fire(uri string) {
	select {
	case s.ch <- uri:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- uri:
	default:
	}
}

// C exposes the underlying channel for a consumer to range over.
func (s *resourceUpdatedSignal) C() <-chan string {
	return s.ch
}
