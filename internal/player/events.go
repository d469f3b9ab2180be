package player

// Events carries the callbacks the player-facing layer subscribes to.
// Callbacks run synchronously on player goroutines and must not call back
// into the Player; nil callbacks are skipped.
type Events struct {
	OnPositionChanged func(seconds float64)
	OnDurationChanged func(seconds float64)
	OnStateChanged    func(playing bool)
	OnFileLoaded      func()
	OnEndOfFile       func()
	OnError           func(err error)
}

func (e *Events) positionChanged(seconds float64) {
	if e != nil && e.OnPositionChanged != nil {
		e.OnPositionChanged(seconds)
	}
}

func (e *Events) durationChanged(seconds float64) {
	if e != nil && e.OnDurationChanged != nil {
		e.OnDurationChanged(seconds)
	}
}

func (e *Events) stateChanged(playing bool) {
	if e != nil && e.OnStateChanged != nil {
		e.OnStateChanged(playing)
	}
}

func (e *Events) fileLoaded() {
	if e != nil && e.OnFileLoaded != nil {
		e.OnFileLoaded()
	}
}

func (e *Events) endOfFile() {
	if e != nil && e.OnEndOfFile != nil {
		e.OnEndOfFile()
	}
}

func (e *Events) errorOccurred(err error) {
	if e != nil && e.OnError != nil {
		e.OnError(err)
	}
}
