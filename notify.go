package trellis

// PropertyChangedHandler receives the name of a changed member.
type PropertyChangedHandler func(name string)

// HandlerID identifies a handler registered with a PropertyNotifier.
type HandlerID uint32

// PropertyNotifier is implemented by plain (non dependency-object) types that
// announce member changes. Bindings whose endpoint implements it subscribe and
// filter by member name; other plain endpoints only update on Synchronize.
type PropertyNotifier interface {
	AddPropertyChangedHandler(h PropertyChangedHandler) HandlerID
	RemovePropertyChangedHandler(id HandlerID)
}

type notifierHandler struct {
	id HandlerID
	fn PropertyChangedHandler
}

// Notifier is an embeddable PropertyNotifier. Call Changed after mutating a
// member:
//
//	type Player struct {
//		trellis.Notifier
//		Health int
//	}
//
//	func (p *Player) Damage(n int) {
//		p.Health -= n
//		p.Changed("Health")
//	}
type Notifier struct {
	handlers []notifierHandler
	nextID   HandlerID
}

// AddPropertyChangedHandler registers h and returns its handle.
func (n *Notifier) AddPropertyChangedHandler(h PropertyChangedHandler) HandlerID {
	n.nextID++
	n.handlers = append(n.handlers, notifierHandler{id: n.nextID, fn: h})
	return n.nextID
}

// RemovePropertyChangedHandler removes a handler. Unknown ids are ignored.
func (n *Notifier) RemovePropertyChangedHandler(id HandlerID) {
	for i, h := range n.handlers {
		if h.id == id {
			n.handlers = append(n.handlers[:i:i], n.handlers[i+1:]...)
			return
		}
	}
}

// Changed notifies all handlers that the named member changed.
func (n *Notifier) Changed(name string) {
	if len(n.handlers) == 0 {
		return
	}
	// handlers may unsubscribe while being called
	hs := append([]notifierHandler(nil), n.handlers...)
	for _, h := range hs {
		h.fn(name)
	}
}

// NumHandlers returns the number of registered handlers.
func (n *Notifier) NumHandlers() int {
	return len(n.handlers)
}
