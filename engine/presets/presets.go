// Package presets manages entity presets: named bundles of starter
// variables and rules that are stamped onto an entity on request.
package presets

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/ecacore/engine/actions"
	"github.com/nathoo/ecacore/engine/fault"
	"github.com/nathoo/ecacore/engine/rules"
	"github.com/nathoo/ecacore/engine/state"
	"github.com/nathoo/ecacore/pkg/logger"
	"github.com/nathoo/ecacore/types"
)

// Manager holds the registered presets of one scene.
type Manager struct {
	presets map[string]types.EntityPreset
	log     *logrus.Entry
}

// NewManager creates an empty manager. A nil log discards output.
func NewManager(log *logrus.Entry) *Manager {
	if log == nil {
		log = logger.Discard()
	}
	return &Manager{
		presets: map[string]types.EntityPreset{},
		log:     log.WithField("component", "presets"),
	}
}

// Register adds or replaces a preset after validating every rule in it.
func (m *Manager) Register(p types.EntityPreset) error {
	if p.ID == "" {
		return fault.New(fault.UnknownPreset, "preset has no id")
	}
	for _, r := range p.Rules {
		if err := rules.Validate(r); err != nil {
			return err
		}
		for i, a := range r.Actions {
			if err := actions.Validate(a); err != nil {
				if fe, ok := err.(*fault.Error); ok {
					return fe.At(r.ID, i, "")
				}
				return err
			}
		}
	}
	m.presets[p.ID] = p
	return nil
}

// Get returns the preset with the given id.
func (m *Manager) Get(id string) (types.EntityPreset, bool) {
	p, ok := m.presets[id]
	return p, ok
}

// Available lists registered presets ordered by id.
func (m *Manager) Available() []types.EntityPreset {
	out := make([]types.EntityPreset, 0, len(m.presets))
	for _, p := range m.presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Apply stamps a preset onto a session entity and returns it. An unknown
// preset logs a warning and leaves the entity untouched.
func (m *Manager) Apply(s *types.Session, entityID, presetID string) (*types.Entity, error) {
	e, ok := state.Entity(s, entityID)
	if !ok {
		return nil, fault.New(fault.MissingReference, "entity %q", entityID)
	}
	if err := m.ApplyTo(e, presetID); err != nil {
		return e, err
	}
	return e, nil
}

// ApplyTo stamps a preset onto e in place. Preset variables are cloned with
// fresh ids and merged by name; rules previously stamped from the same
// preset are replaced, all other rules are kept.
func (m *Manager) ApplyTo(e *types.Entity, presetID string) error {
	p, ok := m.presets[presetID]
	if !ok {
		m.log.WithFields(logrus.Fields{"preset": presetID, "entity": e.ID}).Warn("preset not found")
		return fault.New(fault.UnknownPreset, "preset %q", presetID).At("", -1, e.ID)
	}

	for _, v := range p.Variables {
		c := v
		c.ID = state.NewVariableID()
		c.Scope = types.ScopeEntity
		if i := varIndex(e.Variables, c.Name); i >= 0 {
			e.Variables[i] = c
		} else {
			e.Variables = append(e.Variables, c)
		}
	}

	kept := e.Rules[:0:0]
	for _, r := range e.Rules {
		if r.Origin != presetID {
			kept = append(kept, r)
		}
	}
	for _, r := range p.Rules {
		kept = append(kept, cloneRule(r, presetID))
	}
	e.Rules = kept

	m.log.WithFields(logrus.Fields{
		"preset":    presetID,
		"entity":    e.ID,
		"variables": len(p.Variables),
		"rules":     len(p.Rules),
	}).Info("preset applied")
	return nil
}

func cloneRule(r types.Rule, origin string) types.Rule {
	c := r
	c.Origin = origin
	c.Conditions = append([]types.Condition(nil), r.Conditions...)
	c.Actions = append([]types.Action(nil), r.Actions...)
	return c
}

func varIndex(vars []types.Variable, name string) int {
	for i := range vars {
		if vars[i].Name == name {
			return i
		}
	}
	return -1
}
