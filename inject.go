package fiber

// injected is one queued synthetic pointer event. Coordinates are surface
// pixels, identical to real platform input.
type injected struct {
	root RootID
	p    Pointer
}

// Inject queues a synthetic pointer event for root. One queued event is
// dispatched per tick, before the frame stages run.
func (m *EventManager) Inject(root RootID, p Pointer) {
	m.queue = append(m.queue, injected{root: root, p: p})
}

// InjectMove queues a pointer move at surface position (x, y).
func (m *EventManager) InjectMove(root RootID, x, y float64) {
	m.Inject(root, Pointer{Kind: PointerMove, X: x, Y: y})
}

// InjectPress queues a pointer down at (x, y).
func (m *EventManager) InjectPress(root RootID, x, y float64) {
	m.Inject(root, Pointer{Kind: PointerDown, X: x, Y: y})
}

// InjectRelease queues a pointer up at (x, y) followed by the click it
// completes.
func (m *EventManager) InjectRelease(root RootID, x, y float64) {
	m.Inject(root, Pointer{Kind: PointerUp, X: x, Y: y})
	m.Inject(root, Pointer{Kind: Click, X: x, Y: y})
}

// InjectClick queues a press and release at (x, y). Consumes three ticks.
func (m *EventManager) InjectClick(root RootID, x, y float64) {
	m.InjectPress(root, x, y)
	m.InjectRelease(root, x, y)
}

// InjectDrag queues a press at the start point, frames-2 interpolated
// moves and a release at the end point. Minimum frames is 2.
func (m *EventManager) InjectDrag(root RootID, fromX, fromY, toX, toY float64, frames int) {
	if frames < 2 {
		frames = 2
	}
	m.InjectPress(root, fromX, fromY)
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps+1)
		m.InjectMove(root, fromX+(toX-fromX)*t, fromY+(toY-fromY)*t)
	}
	m.Inject(root, Pointer{Kind: PointerUp, X: toX, Y: toY})
}

// Pending returns the number of queued synthetic events.
func (m *EventManager) Pending() int { return len(m.queue) }

// ProcessInjected dispatches the oldest queued event, reporting whether
// one was consumed.
func (m *EventManager) ProcessInjected() bool {
	if len(m.queue) == 0 {
		return false
	}
	q := m.queue[0]
	copy(m.queue, m.queue[1:])
	m.queue = m.queue[:len(m.queue)-1]
	if err := m.Dispatch(q.root, q.p); err != nil {
		m.ctx.Logger.Warn("injected event dropped", "err", err)
	}
	return true
}
