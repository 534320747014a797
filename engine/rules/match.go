package rules

import (
	"math"

	"github.com/nathoo/ecacore/engine/fault"
	"github.com/nathoo/ecacore/engine/signals"
	"github.com/nathoo/ecacore/engine/state"
	"github.com/nathoo/ecacore/types"
)

// Events is the set of raw events active in one pass.
type Events struct {
	KeysDown   map[string]bool
	KeysUp     map[string]bool
	Clicks     map[int]bool
	Collisions []types.Collision
	Axes       map[string]float64
	Destroyed  []string
	ElapsedMs  float64
	Signals    *signals.Bus
}

// NewEvents builds the event set for a pass. Host-posted signals in the
// input are injected into the bus so they are visible this pass.
func NewEvents(in types.TickInput, bus *signals.Bus) *Events {
	ev := &Events{
		KeysDown:   make(map[string]bool, len(in.KeysDown)),
		KeysUp:     make(map[string]bool, len(in.KeysUp)),
		Clicks:     make(map[int]bool, len(in.Clicks)),
		Collisions: in.Collisions,
		Axes:       in.Axes,
		Destroyed:  in.Destroyed,
		ElapsedMs:  in.ElapsedMs,
		Signals:    bus,
	}
	for _, k := range in.KeysDown {
		ev.KeysDown[k] = true
	}
	for _, k := range in.KeysUp {
		ev.KeysUp[k] = true
	}
	for _, b := range in.Clicks {
		ev.Clicks[b] = true
	}
	for _, sig := range in.Signals {
		bus.Inject(sig)
	}
	return ev
}

// Activation is one satisfied trigger: the entity the rule acts as and, for
// collisions, the other party.
type Activation struct {
	Self  string
	Other string
}

// Timer tracks OnTimer progress for one registered rule.
type Timer struct {
	Elapsed float64
	Done    bool
}

// Candidate is a registered rule presented to the matcher.
type Candidate struct {
	Rule  *types.Rule
	Owner string // owning entity, "" for scene rules
	Fresh bool   // first pass since registration
	Timer *Timer
}

// Match checks one candidate against the pass's events and returns one
// activation per satisfied event. It advances the candidate's Timer, so it
// must be called exactly once per candidate per pass.
func Match(c Candidate, ev *Events, s *types.Session) ([]Activation, error) {
	if c.Rule == nil || c.Rule.Disabled {
		return nil, nil
	}
	if _, ok := c.Rule.Trigger.(types.OnDestroy); ok {
		return matchDestroyed(c.Owner, ev), nil
	}
	if c.Owner != "" {
		owner, ok := state.Entity(s, c.Owner)
		if !ok || !owner.Active {
			return nil, nil
		}
	}
	self := []Activation{{Self: c.Owner}}

	switch t := c.Rule.Trigger.(type) {
	case types.OnKeyDown:
		if ev.KeysDown[t.Key] {
			return self, nil
		}
	case types.OnKeyUp:
		if ev.KeysUp[t.Key] {
			return self, nil
		}
	case types.OnClick:
		if ev.Clicks[t.Button] {
			return self, nil
		}
	case types.OnAxis:
		th := t.Threshold
		if th <= 0 {
			th = types.DefaultAxisThreshold
		}
		if math.Abs(ev.Axes[t.Axis]) >= th {
			return self, nil
		}
	case types.OnCollision:
		return matchCollisions(c.Owner, t.WithTag, types.CollisionEnter, ev, s), nil
	case types.OnCollisionExit:
		return matchCollisions(c.Owner, t.WithTag, types.CollisionExit, ev, s), nil
	case types.OnTriggerEnter:
		return matchCollisions(c.Owner, t.WithTag, types.CollisionTrigger, ev, s), nil
	case types.OnEventSignal:
		if ev.Signals != nil && ev.Signals.WasPosted(t.Signal) {
			return self, nil
		}
	case types.OnTick:
		return self, nil
	case types.OnStart:
		if c.Fresh {
			return self, nil
		}
	case types.OnTimer:
		if advanceTimer(c.Timer, t, ev.ElapsedMs) {
			return self, nil
		}
	default:
		return nil, fault.New(fault.UnknownRule, "trigger %T", c.Rule.Trigger)
	}
	return nil, nil
}

// matchDestroyed activates an entity rule when its owner was destroyed and
// a scene rule once per destroyed entity. The owner usually is inactive by
// now, so the active check does not apply.
func matchDestroyed(owner string, ev *Events) []Activation {
	var out []Activation
	for _, id := range ev.Destroyed {
		if owner == "" || id == owner {
			out = append(out, Activation{Self: id})
		}
	}
	return out
}

// matchCollisions returns an activation per collision of the given phase
// that involves owner (any pair for scene rules) and whose other party
// carries tag.
func matchCollisions(owner, tag, phase string, ev *Events, s *types.Session) []Activation {
	var out []Activation
	for _, col := range ev.Collisions {
		if col.Phase != phase {
			continue
		}
		switch {
		case owner == "":
			if tagged(s, col.B, tag) {
				out = append(out, Activation{Self: col.A, Other: col.B})
			} else if tagged(s, col.A, tag) {
				out = append(out, Activation{Self: col.B, Other: col.A})
			}
		case col.A == owner:
			if tagged(s, col.B, tag) {
				out = append(out, Activation{Self: owner, Other: col.B})
			}
		case col.B == owner:
			if tagged(s, col.A, tag) {
				out = append(out, Activation{Self: owner, Other: col.A})
			}
		}
	}
	return out
}

func tagged(s *types.Session, id, tag string) bool {
	if tag == "" {
		return true
	}
	e, ok := state.Entity(s, id)
	return ok && state.HasTag(e, tag)
}

func advanceTimer(tm *Timer, t types.OnTimer, elapsed float64) bool {
	if tm == nil || tm.Done || t.IntervalMs <= 0 {
		return false
	}
	tm.Elapsed += elapsed
	if tm.Elapsed < t.IntervalMs {
		return false
	}
	tm.Elapsed -= t.IntervalMs
	if !t.Repeat {
		tm.Done = true
	}
	return true
}
