package host

// exitState tracks terminal outcomes across the whole run, enough to judge
// the First/Last/All success policies without re-deriving it from the
// supervisor on every exit.
type exitState struct {
	order     []string // construction order, used by allExited
	exited    map[string]*int
	lastID    string
	lastCode  *int
}

func newExitState(order []string) *exitState {
	return &exitState{
		order:  order,
		exited: make(map[string]*int, len(order)),
	}
}

func (e *exitState) record(id string, code *int) {
	e.exited[id] = code
	e.lastID = id
	e.lastCode = code
}

func (e *exitState) allExited() bool {
	for _, id := range e.order {
		if _, ok := e.exited[id]; !ok {
			return false
		}
	}
	return true
}

func (e *exitState) anyFailed() bool {
	for _, code := range e.exited {
		if code == nil || *code != 0 {
			return true
		}
	}
	return false
}
