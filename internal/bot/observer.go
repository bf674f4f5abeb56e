package bot

// Observer receives loop events as they happen. Calls are made from the
// Run goroutine and must not block.
type Observer interface {
	OnTick(symbol string, tick Tick)
	OnTransition(symbol string, t Transition)
	OnOrder(event OrderEvent)
}

type multiObserver []Observer

// MultiObserver fans events out to every non-nil observer in order
func MultiObserver(observers ...Observer) Observer {
	var m multiObserver
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (m multiObserver) OnTick(symbol string, tick Tick) {
	for _, o := range m {
		o.OnTick(symbol, tick)
	}
}

func (m multiObserver) OnTransition(symbol string, t Transition) {
	for _, o := range m {
		o.OnTransition(symbol, t)
	}
}

func (m multiObserver) OnOrder(event OrderEvent) {
	for _, o := range m {
		o.OnOrder(event)
	}
}

type nopObserver struct{}

func (nopObserver) OnTick(string, Tick)             {}
func (nopObserver) OnTransition(string, Transition) {}
func (nopObserver) OnOrder(OrderEvent)              {}
