// Package types defines the shared data structures for the ECA rule core.
// This package contains only type definitions and variant markers, no logic.
package types

// Scope is the ownership domain of a variable.
type Scope string

const (
	ScopeGlobal Scope = "Global"
	ScopeEntity Scope = "Entity"
)

// VarType is the declared type of a variable.
type VarType string

const (
	VarFloat  VarType = "float"
	VarString VarType = "string"
	VarBool   VarType = "bool"
)

// Variable is a named, typed value owned by an entity or the global store.
// ID exists only for editor identity; lookups are by Name.
type Variable struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Type  VarType `json:"type"`
	Value any     `json:"value"` // float64, string or bool matching Type
	Scope Scope   `json:"scope"`
}

// Vec2 is a 2D world position or velocity.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Entity is a scene object. The host owns its lifecycle and physical state;
// the rule engine only mutates Variables.
type Entity struct {
	ID        string
	Kind      string // "player", "enemy", "prop", "trigger"
	Position  Vec2
	Size      Vec2 // bounding box centered on Position, used by raycasts
	Velocity  Vec2
	Grounded  bool
	Active    bool
	Tags      []string
	Variables []Variable
	Rules     []Rule
}

// Rule is a single Event-Condition-Action rule.
type Rule struct {
	ID         string
	Name       string
	Disabled   bool
	Priority   int    // lower runs first; ties keep registration order
	Origin     string // preset id this rule was cloned from, "" if hand-authored
	Trigger    Trigger
	Conditions []Condition
	Actions    []Action
}

// EntityPreset is a named bundle of starter variables and rules.
type EntityPreset struct {
	ID          string
	Label       string
	Description string
	Variables   []Variable
	Rules       []Rule
}

// Session is the complete mutable world of one loaded scene.
type Session struct {
	Globals   []Variable
	Entities  map[string]*Entity
	Order     []string // entity insertion order
	Tick      int
	Clock     float64            // elapsed scene time in ms
	Cooldowns map[string]float64 // cooldown id -> clock value when ready
}

// Collision phases.
const (
	CollisionEnter   = "enter"
	CollisionExit    = "exit"
	CollisionTrigger = "trigger" // entered a pass-through trigger area
)

// Collision is a contact event between two entities reported by the host.
type Collision struct {
	A     string
	B     string
	Phase string
}

// TickInput is the raw event batch the host hands to one engine pass.
type TickInput struct {
	KeysDown   []string
	KeysUp     []string
	Clicks     []int
	Collisions []Collision
	Axes       map[string]float64 // axis name -> deflection in [-1, 1]
	Destroyed  []string           // entities the host removed since the last tick
	ElapsedMs  float64
	Signals    []string // host-posted signals, visible this tick
}

// TickResult is the output of one engine pass.
type TickResult struct {
	Tick     int
	Commands []Command
	Fired    []string // rule ids whose conditions passed, in execution order
	Signals  []string // posted this tick, visible next tick
	Faults   []error
}

// SceneDef holds scene metadata from the content files.
type SceneDef struct {
	Title       string
	Author      string
	Version     string
	Description string
}

// EntityDef is an entity template plus the presets applied at scene load,
// in order.
type EntityDef struct {
	Entity  Entity
	Presets []string
}
