package transfer

// Observer is notified of each result as soon as it is produced, in input order.
// Observers shared across concurrent chains must be safe for concurrent use.
type Observer interface {
	OnResult(Result)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Result)

func (f ObserverFunc) OnResult(r Result) { f(r) }

// MultiObserver fans a result out to each non-nil observer in order.
type MultiObserver []Observer

func (m MultiObserver) OnResult(r Result) {
	for _, o := range m {
		if o != nil {
			o.OnResult(r)
		}
	}
}

type nopObserver struct{}

func (nopObserver) OnResult(Result) {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}
