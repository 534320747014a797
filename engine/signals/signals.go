// Package signals implements the session signal bus. Signals posted during
// a pass become visible to trigger matching in the next pass only, then
// disappear, so an EmitSignal can never re-trigger within its own tick.
package signals

// Bus holds the pending and visible signal sets of one scene.
type Bus struct {
	pending []string
	visible map[string]bool
	order   []string
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{visible: map[string]bool{}}
}

// Post queues a signal for the next pass. Duplicates within a pass collapse.
func (b *Bus) Post(name string) {
	if name == "" {
		return
	}
	for _, p := range b.pending {
		if p == name {
			return
		}
	}
	b.pending = append(b.pending, name)
}

// Inject makes a host-posted signal visible in the current pass.
func (b *Bus) Inject(name string) {
	if name == "" || b.visible[name] {
		return
	}
	b.visible[name] = true
	b.order = append(b.order, name)
}

// WasPosted reports whether name is visible in the current pass.
func (b *Bus) WasPosted(name string) bool {
	return b.visible[name]
}

// Visible returns the signals visible in the current pass, in posting order.
func (b *Bus) Visible() []string {
	return append([]string(nil), b.order...)
}

// Pending returns the signals queued for the next pass.
func (b *Bus) Pending() []string {
	return append([]string(nil), b.pending...)
}

// Advance ends a pass: the pending set becomes visible and the previously
// visible set is dropped.
func (b *Bus) Advance() {
	b.visible = make(map[string]bool, len(b.pending))
	b.order = b.order[:0]
	for _, p := range b.pending {
		b.visible[p] = true
		b.order = append(b.order, p)
	}
	b.pending = nil
}

// Reset clears everything for scene teardown.
func (b *Bus) Reset() {
	b.pending = nil
	b.visible = map[string]bool{}
	b.order = nil
}
