// Package state is the variable store and scene world: per-entity and
// global named values with typed accessors, plus the entity table the host
// maintains between ticks.
package state

import (
	"errors"

	"github.com/google/uuid"

	"github.com/nathoo/ecacore/engine/fault"
	"github.com/nathoo/ecacore/types"
)

// Defs holds the immutable scene definitions produced by the loader.
type Defs struct {
	Scene    types.SceneDef
	Globals  []types.Variable
	Entities []types.EntityDef
	Presets  map[string]types.EntityPreset
	Rules    []types.Rule // scene rules, no owner
}

// NewSession creates a fresh scene world from definitions. Entity templates
// are deep-copied so sessions never alias definition storage. Presets are
// not applied here; the engine does that once it owns a preset manager.
// Definitions that cannot be added (duplicate or empty ids) are skipped and
// reported in the joined error; the session is usable either way.
func NewSession(defs *Defs) (*types.Session, error) {
	s := &types.Session{
		Globals:   cloneVars(defs.Globals),
		Entities:  map[string]*types.Entity{},
		Order:     []string{},
		Cooldowns: map[string]float64{},
	}
	var errs []error
	for _, def := range defs.Entities {
		e := CloneEntity(def.Entity)
		if err := AddEntity(s, &e); err != nil {
			errs = append(errs, err)
		}
	}
	return s, errors.Join(errs...)
}

// Reset clears the session for scene teardown.
func Reset(s *types.Session) {
	s.Globals = nil
	s.Entities = map[string]*types.Entity{}
	s.Order = []string{}
	s.Tick = 0
	s.Clock = 0
	s.Cooldowns = map[string]float64{}
}

// AddEntity inserts an entity created by the host. Duplicate IDs are
// rejected.
func AddEntity(s *types.Session, e *types.Entity) error {
	if e == nil || e.ID == "" {
		return fault.New(fault.MissingReference, "entity has no id")
	}
	if _, ok := s.Entities[e.ID]; ok {
		return fault.New(fault.MissingReference, "entity %q already exists", e.ID)
	}
	s.Entities[e.ID] = e
	s.Order = append(s.Order, e.ID)
	return nil
}

// RemoveEntity drops an entity from the scene. Unknown IDs are ignored.
func RemoveEntity(s *types.Session, id string) {
	if _, ok := s.Entities[id]; !ok {
		return
	}
	delete(s.Entities, id)
	for i, v := range s.Order {
		if v == id {
			s.Order = append(s.Order[:i], s.Order[i+1:]...)
			break
		}
	}
}

// Entity returns the entity with the given ID.
func Entity(s *types.Session, id string) (*types.Entity, bool) {
	e, ok := s.Entities[id]
	return e, ok
}

// Entities returns all entities in insertion order.
func Entities(s *types.Session) []*types.Entity {
	out := make([]*types.Entity, 0, len(s.Order))
	for _, id := range s.Order {
		if e, ok := s.Entities[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// HasTag reports whether the entity carries tag.
func HasTag(e *types.Entity, tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// CooldownReady reports whether a cooldown has elapsed. Unknown cooldowns
// are ready.
func CooldownReady(s *types.Session, id string) bool {
	until, ok := s.Cooldowns[id]
	return !ok || s.Clock >= until
}

// StartCooldown makes id unready for durationMs of scene time.
func StartCooldown(s *types.Session, id string, durationMs float64) {
	s.Cooldowns[id] = s.Clock + durationMs
}

// NewVariableID returns a fresh unique variable identifier.
func NewVariableID() string {
	return uuid.NewString()
}

// CloneEntity deep-copies an entity's slices.
func CloneEntity(e types.Entity) types.Entity {
	c := e
	c.Tags = append([]string(nil), e.Tags...)
	c.Variables = cloneVars(e.Variables)
	c.Rules = append([]types.Rule(nil), e.Rules...)
	return c
}

func cloneVars(vars []types.Variable) []types.Variable {
	if vars == nil {
		return nil
	}
	return append([]types.Variable(nil), vars...)
}
