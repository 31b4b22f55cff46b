package engine

// Change names the part of the engine state that changed.
type Change string

const (
	ChangeAssets    Change = "assets"
	ChangeStatus    Change = "status"
	ChangeListing   Change = "listing"
	ChangePortfolio Change = "portfolio"
	ChangeFavorites Change = "favorites"
)

const subscriberBuffer = 16

// Subscribe returns a channel of change notifications and a function that
// cancels the subscription. Notifications are dropped for a subscriber whose
// buffer is full; the channel is closed on cancel or Close.
func (e *Engine) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, subscriberBuffer)
	e.subMu.Lock()
	defer e.subMu.Unlock()
	if e.closed.Load() {
		close(ch)
		return ch, func() {}
	}
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	return ch, func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		if c, ok := e.subs[id]; ok {
			close(c)
			delete(e.subs, id)
		}
	}
}

func (e *Engine) notify(c Change) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- c:
		default:
		}
	}
}
