// Package engine provides the Tick orchestrator that wires trigger matching,
// condition evaluation, action dispatch and the signal bus into one pass.
package engine

import (
	"errors"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/ecacore/engine/actions"
	"github.com/nathoo/ecacore/engine/fault"
	"github.com/nathoo/ecacore/engine/presets"
	"github.com/nathoo/ecacore/engine/rules"
	"github.com/nathoo/ecacore/engine/signals"
	"github.com/nathoo/ecacore/engine/state"
	"github.com/nathoo/ecacore/metric"
	"github.com/nathoo/ecacore/pkg/logger"
	"github.com/nathoo/ecacore/types"
)

// Engine holds the scene definitions and the mutable session.
type Engine struct {
	Defs    *state.Defs
	Session *types.Session
	Signals *signals.Bus
	Presets *presets.Manager

	log     *logrus.Entry
	metrics *metric.Metrics
	regs    []*registration
}

// Registered is a rule as seen by the engine: the rule plus its owner.
type Registered struct {
	Owner string
	Rule  types.Rule
}

type registration struct {
	Registered
	fresh bool
	timer rules.Timer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the log entry. The default discards output.
func WithLogger(log *logrus.Entry) Option {
	return func(e *Engine) { e.log = log }
}

// WithMetrics sets the metrics sink. nil disables metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an engine from definitions. Built-in presets are registered
// first so content presets with the same id replace them. Each entity's
// load-time presets are applied in order, then scene rules and entity
// rules are registered in entity order.
func New(defs *state.Defs, opts ...Option) *Engine {
	e := &Engine{Defs: defs, log: logger.Discard()}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithField("component", "engine")

	sess, err := state.NewSession(defs)
	if err != nil {
		e.log.WithError(err).Warn("skipped entity definitions")
	}
	e.Session = sess
	e.Signals = signals.New()
	e.Presets = presets.NewManager(e.log)
	e.Presets.LoadDefaults()
	for _, id := range sortedPresetIDs(defs.Presets) {
		if err := e.Presets.Register(defs.Presets[id]); err != nil {
			e.fault(err)
		}
	}

	for _, def := range defs.Entities {
		ent, ok := state.Entity(e.Session, def.Entity.ID)
		if !ok {
			continue
		}
		for _, pid := range def.Presets {
			if err := e.Presets.ApplyTo(ent, pid); err != nil {
				e.fault(err)
			}
		}
	}

	e.register("", defs.Rules...)
	for _, ent := range state.Entities(e.Session) {
		e.register(ent.ID, ent.Rules...)
	}
	return e
}

// Register adds rules owned by owner ("" for scene rules) after every rule
// already registered. A rule with the same owner, origin and id as an
// existing registration replaces it in place, so a preset rule never
// shadows a hand-authored rule that happens to share its id.
func (e *Engine) Register(owner string, rs ...types.Rule) error {
	if owner != "" {
		if _, ok := state.Entity(e.Session, owner); !ok {
			return fault.New(fault.MissingReference, "entity %q", owner)
		}
	}
	for _, r := range rs {
		if err := rules.Validate(r); err != nil {
			return err
		}
	}
	e.register(owner, rs...)
	return nil
}

func (e *Engine) register(owner string, rs ...types.Rule) {
	for _, r := range rs {
		reg := &registration{Registered: Registered{Owner: owner, Rule: r}, fresh: true}
		if i := e.find(owner, r.Origin, r.ID); i >= 0 {
			e.regs[i] = reg
			continue
		}
		e.regs = append(e.regs, reg)
	}
}

func (e *Engine) find(owner, origin, id string) int {
	if id == "" {
		return -1
	}
	for i, r := range e.regs {
		if r.Owner == owner && r.Rule.Origin == origin && r.Rule.ID == id {
			return i
		}
	}
	return -1
}

// Unregister drops the owner's rules stamped from origin and returns how
// many were removed. origin "" removes hand-authored rules.
func (e *Engine) Unregister(owner, origin string) int {
	return e.drop(func(r *registration) bool {
		return r.Owner == owner && r.Rule.Origin == origin
	})
}

// sync makes the owner's registrations from origin match rs. Rules whose id
// is still present keep their execution position; new ones are appended and
// the rest dropped.
func (e *Engine) sync(owner, origin string, rs []types.Rule) {
	keep := make(map[string]bool, len(rs))
	for _, r := range rs {
		if r.ID != "" {
			keep[r.ID] = true
		}
	}
	e.drop(func(r *registration) bool {
		return r.Owner == owner && r.Rule.Origin == origin && !keep[r.Rule.ID]
	})
	e.register(owner, rs...)
}

// Remove drops every registered rule of owner with the given id, whatever
// its origin.
func (e *Engine) Remove(owner, ruleID string) bool {
	return e.drop(func(r *registration) bool {
		return r.Owner == owner && r.Rule.ID == ruleID
	}) > 0
}

func (e *Engine) drop(match func(*registration) bool) int {
	kept := e.regs[:0]
	n := 0
	for _, r := range e.regs {
		if match(r) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(e.regs); i++ {
		e.regs[i] = nil
	}
	e.regs = kept
	return n
}

// Rules returns the registered rules in execution order.
func (e *Engine) Rules() []Registered {
	cands := e.candidates()
	out := make([]Registered, len(cands))
	for i, c := range cands {
		out[i] = Registered{Owner: c.Owner, Rule: *c.Rule}
	}
	return out
}

func (e *Engine) candidates() []rules.Candidate {
	cands := make([]rules.Candidate, len(e.regs))
	for i, r := range e.regs {
		cands[i] = rules.Candidate{Rule: &r.Rule, Owner: r.Owner, Fresh: r.fresh, Timer: &r.timer}
	}
	rules.Order(cands)
	return cands
}

type matched struct {
	cand rules.Candidate
	acts []rules.Activation
}

// Tick runs one full pass over the input batch: collect events, match
// triggers, then for each matched rule in order evaluate conditions and
// dispatch actions, and finally advance the signal bus. Entities listed in
// in.Destroyed run their OnDestroy rules and are removed at the end of the
// pass.
func (e *Engine) Tick(in types.TickInput) types.TickResult {
	start := time.Now()
	s := e.Session
	s.Tick++
	s.Clock += in.ElapsedMs
	res := types.TickResult{Tick: s.Tick}

	ev := rules.NewEvents(in, e.Signals)

	var hits []matched
	total := 0
	for _, c := range e.candidates() {
		acts, err := rules.Match(c, ev, s)
		if err != nil {
			res.Faults = append(res.Faults, e.fault(annotate(err, c.Rule.ID, -1, c.Owner)))
			continue
		}
		if len(acts) > 0 {
			hits = append(hits, matched{cand: c, acts: acts})
			total += len(acts)
		}
	}
	e.metrics.Matched(total)

	for _, h := range hits {
		r := h.cand.Rule
		for _, act := range h.acts {
			ctx := rules.Context{RuleID: r.ID, Self: act.Self, Other: act.Other}
			ok, idx, err := rules.EvalAll(r.Conditions, ctx, s)
			if err != nil {
				res.Faults = append(res.Faults, e.fault(annotate(err, r.ID, idx, act.Self)))
			}
			if !ok {
				continue
			}
			res.Fired = append(res.Fired, r.ID)
			e.metrics.Fired(r.ID)
			for _, a := range r.Actions {
				if a != nil {
					e.metrics.Action(a.ActionKind())
				}
			}
			cmds, faults := actions.Apply(s, e.Signals, r.Actions, ctx)
			res.Commands = append(res.Commands, cmds...)
			for _, f := range faults {
				res.Faults = append(res.Faults, e.fault(f))
			}
		}
	}

	for _, r := range e.regs {
		r.fresh = false
	}
	for _, id := range in.Destroyed {
		e.RemoveEntity(id)
	}
	res.Signals = e.Signals.Pending()
	e.Signals.Advance()

	e.metrics.Tick(time.Since(start))
	e.log.WithFields(logrus.Fields{
		"tick":     res.Tick,
		"fired":    len(res.Fired),
		"commands": len(res.Commands),
		"faults":   len(res.Faults),
	}).Debug("tick")
	return res
}

// ApplyPreset stamps a preset onto an entity and re-registers the rules it
// contributed. Rules the preset contributed before keep their position in
// execution order.
func (e *Engine) ApplyPreset(entityID, presetID string) (*types.Entity, error) {
	ent, err := e.Presets.Apply(e.Session, entityID, presetID)
	if err != nil {
		var fe *fault.Error
		if errors.As(err, &fe) && fe.Kind == fault.UnknownPreset {
			e.metrics.Fault(fe.Kind.String())
			return ent, err
		}
		return ent, e.fault(err)
	}
	var stamped []types.Rule
	for _, r := range ent.Rules {
		if r.Origin == presetID {
			stamped = append(stamped, r)
		}
	}
	e.sync(entityID, presetID, stamped)
	return ent, nil
}

// AddEntity inserts a host-created entity and registers its rules.
func (e *Engine) AddEntity(ent types.Entity) error {
	c := state.CloneEntity(ent)
	if err := state.AddEntity(e.Session, &c); err != nil {
		return err
	}
	e.register(c.ID, c.Rules...)
	return nil
}

// RemoveEntity drops an entity and every rule it owns.
func (e *Engine) RemoveEntity(id string) {
	state.RemoveEntity(e.Session, id)
	e.drop(func(r *registration) bool { return r.Owner == id })
}

// Teardown clears all scene state and registrations.
func (e *Engine) Teardown() {
	state.Reset(e.Session)
	e.Signals.Reset()
	e.regs = nil
}

// fault logs and counts err, returning it unchanged.
func (e *Engine) fault(err error) error {
	fields := logrus.Fields{}
	var fe *fault.Error
	if errors.As(err, &fe) {
		fields["kind"] = fe.Kind.String()
		if fe.RuleID != "" {
			fields["rule_id"] = fe.RuleID
		}
		if fe.Index >= 0 {
			fields["index"] = fe.Index
		}
		if fe.EntityID != "" {
			fields["entity_id"] = fe.EntityID
		}
		e.metrics.Fault(fe.Kind.String())
	}
	e.log.WithFields(fields).WithError(err).Warn("rule fault")
	return err
}

func sortedPresetIDs(m map[string]types.EntityPreset) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func annotate(err error, ruleID string, index int, entityID string) error {
	var fe *fault.Error
	if errors.As(err, &fe) {
		return fe.At(ruleID, index, entityID)
	}
	return err
}
