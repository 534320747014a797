package loader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/ecacore/engine/state"
	"github.com/nathoo/ecacore/types"
	lua "github.com/yuin/gopher-lua"
)

// rawDef holds an Entity or Preset table before compilation.
type rawDef struct {
	id    string
	table *lua.LTable
}

// rawRule holds a rule before compilation.
type rawRule struct {
	id         string
	trigger    *lua.LTable
	conditions *lua.LTable // may be nil
	actions    *lua.LTable
	options    *lua.LTable // may be nil
}

// toMap flattens a Lua rule into the same shape JSON rules use.
func (r rawRule) toMap() map[string]any {
	m := map[string]any{
		"id":      r.id,
		"trigger": toGoValue(r.trigger),
		"actions": toGoValue(r.actions),
	}
	if r.conditions != nil {
		m["conditions"] = toGoValue(r.conditions)
	}
	for k, v := range tableToAnyMap(r.options) {
		m[k] = v
	}
	return m
}

// toGoValue converts a Lua value to a Go value recursively.
func toGoValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int(f)) {
			return int(f)
		}
		return f
	case *lua.LNilType:
		return nil
	case lua.LString:
		return string(val)
	case *lua.LTable:
		// Check if it's an array (sequential integer keys starting at 1).
		maxN := val.MaxN()
		if maxN > 0 {
			arr := make([]any, 0, maxN)
			for i := 1; i <= maxN; i++ {
				arr = append(arr, toGoValue(val.RawGetInt(i)))
			}
			return arr
		}
		// Otherwise treat as map.
		m := map[string]any{}
		val.ForEach(func(k, v lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				m[string(ks)] = toGoValue(v)
			}
		})
		return m
	default:
		return nil
	}
}

// tableToAnyMap converts a Lua table to a map[string]any.
func tableToAnyMap(tbl *lua.LTable) map[string]any {
	if tbl == nil {
		return nil
	}
	m := map[string]any{}
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			m[string(ks)] = toGoValue(v)
		}
	})
	return m
}

// Known variant keys. A kind missing from these tables is rejected.
var triggerKeys = map[string][]string{
	"OnKeyDown":       {"key"},
	"OnKeyUp":         {"key"},
	"OnClick":         {"button"},
	"OnAxis":          {"axis", "threshold"},
	"OnCollision":     {"tag"},
	"OnCollisionExit": {"tag"},
	"OnTriggerEnter":  {"tag"},
	"OnEventSignal":   {"signal"},
	"OnTick":          nil,
	"OnStart":         nil,
	"OnTimer":         {"interval", "repeat"},
	"OnDestroy":       nil,
}

var conditionKeys = map[string][]string{
	"Compare":       {"variable", "operator", "value", "scope", "entity"},
	"IsGrounded":    {"entity"},
	"RaycastHit":    {"dx", "dy", "distance", "tag"},
	"HasVariable":   {"variable", "scope", "entity"},
	"HasTag":        {"tag", "entity"},
	"IsActive":      {"entity", "expected"},
	"CooldownReady": {"cooldown"},
	"Not":           {"inner"},
}

var actionKeys = map[string][]string{
	"Set":           {"variable", "value", "scope", "entity"},
	"Add":           {"variable", "amount", "amountVar", "scope", "entity"},
	"Subtract":      {"variable", "amount", "amountVar", "scope", "entity"},
	"Move":          {"dx", "dy", "speed", "entity"},
	"ApplyForce":    {"fx", "fy", "entity"},
	"SetVelocity":   {"vx", "vy", "entity"},
	"Teleport":      {"x", "y", "relative", "entity"},
	"Spawn":         {"template", "x", "y", "entity", "pool", "poolSize"},
	"ShowDialog":    {"dialog", "speaker", "portrait", "choices"},
	"PlayAnimation": {"animation", "loop", "entity"},
	"SetSprite":     {"sprite", "entity"},
	"SetMaterial":   {"material", "entity"},
	"LoadScene":     {"scene", "transition", "data"},
	"EmitSignal":    {"signal"},
	"StartCooldown": {"cooldown", "duration", "durationVar"},
	"SetActive":     {"active", "entity"},
	"Destroy":       {"entity", "delay"},
	"PlayEffect":    {"preset", "x", "y", "scale", "entity"},
	"PlaySound":     {"sound", "volume", "loop"},
	"StopSound":     {"sound"},
}

var ruleKeys = []string{"id", "name", "priority", "disabled", "trigger", "conditions", "actions"}

// operators maps accepted spellings to Compare operators.
var operators = map[string]types.CompareOperator{
	"Equals":         types.OpEquals,
	"==":             types.OpEquals,
	"NotEquals":      types.OpNotEquals,
	"!=":             types.OpNotEquals,
	"~=":             types.OpNotEquals,
	"GreaterThan":    types.OpGreaterThan,
	"Greater":        types.OpGreaterThan,
	">":              types.OpGreaterThan,
	"LessThan":       types.OpLessThan,
	"Less":           types.OpLessThan,
	"<":              types.OpLessThan,
	"GreaterOrEqual": types.OpGreaterOrEqual,
	">=":             types.OpGreaterOrEqual,
	"LessOrEqual":    types.OpLessOrEqual,
	"<=":             types.OpLessOrEqual,
}

// compiler turns generic maps into typed definitions, recording every
// problem on ve instead of stopping at the first.
type compiler struct {
	ve *ValidationError
}

// fields reads typed values out of one map, reporting bad values under
// where.
type fields struct {
	c     *compiler
	where string
	m     map[string]any
}

func (c *compiler) fields(where string, m map[string]any, known ...string) *fields {
	allowed := map[string]bool{"type": true}
	for _, k := range known {
		allowed[k] = true
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !allowed[k] {
			c.ve.warnf("%s: unknown key %q", where, k)
		}
	}
	return &fields{c: c, where: where, m: m}
}

func (f *fields) fail(format string, args ...any) {
	f.c.ve.errorf("%s: %s", f.where, fmt.Sprintf(format, args...))
}

func (f *fields) str(key string) string {
	v, ok := f.m[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		f.fail("%s must be a string, got %T", key, v)
	}
	return s
}

// need is str for required keys.
func (f *fields) need(key string) string {
	if v, ok := f.m[key]; !ok || v == nil || v == "" {
		f.fail("%s is required", key)
		return ""
	}
	return f.str(key)
}

func (f *fields) numOr(key string, def float64) float64 {
	v, ok := f.m[key]
	if !ok || v == nil {
		return def
	}
	n, ok := state.ToFloat(v)
	if !ok {
		f.fail("%s must be a number, got %T", key, v)
	}
	return n
}

func (f *fields) num(key string) float64 {
	return f.numOr(key, 0)
}

func (f *fields) integer(key string) int {
	return int(f.num(key))
}

func (f *fields) flag(key string, def bool) bool {
	v, ok := f.m[key]
	if !ok || v == nil {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		f.fail("%s must be a bool, got %T", key, v)
	}
	return b
}

// literal returns a normalized float64, string or bool value.
func (f *fields) literal(key string) any {
	v, ok := f.m[key]
	if !ok {
		f.fail("%s is required", key)
		return nil
	}
	_, val, err := state.Infer(v)
	if err != nil {
		f.fail("%s: %v", key, err)
	}
	return val
}

func (f *fields) scope() types.Scope {
	switch s := f.str("scope"); {
	case s == "":
		return ""
	case strings.EqualFold(s, string(types.ScopeGlobal)):
		return types.ScopeGlobal
	case strings.EqualFold(s, string(types.ScopeEntity)):
		return types.ScopeEntity
	default:
		f.fail("unknown scope %q", s)
		return ""
	}
}

// list returns a list value; an empty Lua table reads as an empty list.
func (f *fields) list(key string) []any {
	switch v := f.m[key].(type) {
	case nil:
		return nil
	case []any:
		return v
	case map[string]any:
		if len(v) == 0 {
			return nil
		}
	}
	f.fail("%s must be a list", key)
	return nil
}

func (f *fields) strings(key string) []string {
	var out []string
	for _, item := range f.list(key) {
		s, ok := item.(string)
		if !ok {
			f.fail("%s entries must be strings, got %T", key, item)
			continue
		}
		out = append(out, s)
	}
	return out
}

func (f *fields) dict(key string) map[string]any {
	v, ok := f.m[key]
	if !ok || v == nil {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		f.fail("%s must be a table, got %T", key, v)
	}
	return m
}

// compile converts all collected Lua data into a Defs struct. Rules named
// in an entity or preset rules list belong to it; the rest are scene rules.
func (c *compiler) compile(coll *collector) *state.Defs {
	defs := &state.Defs{Presets: map[string]types.EntityPreset{}}

	if coll.scene == nil {
		c.ve.errorf("no Scene{} definition found")
	} else {
		defs.Scene = c.scene(tableToAnyMap(coll.scene))
	}

	for i, tbl := range coll.globals {
		if v, ok := c.variable(tableToAnyMap(tbl), types.ScopeGlobal, fmt.Sprintf("global %d", i+1)); ok {
			defs.Globals = append(defs.Globals, v)
		}
	}

	compiled := map[string]types.Rule{}
	failed := map[string]bool{}
	for _, raw := range coll.rules {
		if _, dup := compiled[raw.id]; dup || failed[raw.id] {
			c.ve.errorf("duplicate rule id %q", raw.id)
			continue
		}
		r, ok := c.rule(raw.toMap(), fmt.Sprintf("rule %q", raw.id))
		if !ok {
			failed[raw.id] = true
			continue
		}
		compiled[raw.id] = r
	}

	claimed := map[string]bool{}
	claim := func(where string, v any) []types.Rule {
		f := &fields{c: c, where: where, m: map[string]any{"rules": v}}
		var out []types.Rule
		for _, item := range f.list("rules") {
			m, _ := item.(map[string]any)
			id, _ := m["__rule_id"].(string)
			if id == "" {
				c.ve.errorf("%s: rules entries must be created with Rule()", where)
				continue
			}
			r, ok := compiled[id]
			if !ok {
				if !failed[id] {
					c.ve.errorf("%s references undefined rule %q", where, id)
				}
				continue
			}
			claimed[id] = true
			out = append(out, r)
		}
		return out
	}

	for _, raw := range coll.presets {
		where := fmt.Sprintf("preset %q", raw.id)
		if _, dup := defs.Presets[raw.id]; dup {
			c.ve.errorf("duplicate preset id %q", raw.id)
			continue
		}
		m := tableToAnyMap(raw.table)
		f := c.fields(where, m, "label", "description", "vars", "rules")
		defs.Presets[raw.id] = types.EntityPreset{
			ID:          raw.id,
			Label:       f.str("label"),
			Description: f.str("description"),
			Variables:   c.variables(m["vars"], types.ScopeEntity, where),
			Rules:       claim(where, m["rules"]),
		}
	}

	for _, raw := range coll.entities {
		where := fmt.Sprintf("entity %q", raw.id)
		m := tableToAnyMap(raw.table)
		defs.Entities = append(defs.Entities, c.entity(raw.id, m, where, claim(where, m["rules"])))
	}

	for _, raw := range coll.rules {
		if r, ok := compiled[raw.id]; ok && !claimed[raw.id] {
			defs.Rules = append(defs.Rules, r)
			claimed[raw.id] = true
		}
	}
	return defs
}

func (c *compiler) scene(m map[string]any) types.SceneDef {
	f := c.fields("Scene", m, "title", "author", "version", "description")
	return types.SceneDef{
		Title:       f.str("title"),
		Author:      f.str("author"),
		Version:     f.str("version"),
		Description: f.str("description"),
	}
}

func (c *compiler) entity(id string, m map[string]any, where string, rs []types.Rule) types.EntityDef {
	f := c.fields(where, m, "kind", "x", "y", "width", "height", "vx", "vy", "grounded", "active", "tags", "presets", "vars", "rules")
	e := types.Entity{
		ID:       id,
		Kind:     f.str("kind"),
		Position: types.Vec2{X: f.num("x"), Y: f.num("y")},
		Size:     types.Vec2{X: f.num("width"), Y: f.num("height")},
		Velocity: types.Vec2{X: f.num("vx"), Y: f.num("vy")},
		Grounded: f.flag("grounded", false),
		Active:   f.flag("active", true),
		Tags:     f.strings("tags"),
		Rules:    rs,
	}
	if e.Kind == "" {
		e.Kind = "prop"
	}
	e.Variables = c.variables(m["vars"], types.ScopeEntity, where)
	return types.EntityDef{Entity: e, Presets: f.strings("presets")}
}

// variables accepts a list of Var() tables or a name = value map. Map
// entries are taken in name order.
func (c *compiler) variables(v any, scope types.Scope, where string) []types.Variable {
	var out []types.Variable
	switch vars := v.(type) {
	case nil:
	case []any:
		for i, item := range vars {
			m, ok := item.(map[string]any)
			if !ok {
				c.ve.errorf("%s: vars entry %d must be a table", where, i+1)
				continue
			}
			if nv, ok := c.variable(m, scope, where); ok {
				out = append(out, nv)
			}
		}
	case map[string]any:
		names := make([]string, 0, len(vars))
		for name := range vars {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			m := map[string]any{"name": name, "value": vars[name]}
			if nv, ok := c.variable(m, scope, where); ok {
				out = append(out, nv)
			}
		}
	default:
		c.ve.errorf("%s: vars must be a table, got %T", where, v)
	}
	return out
}

// variable compiles {name, value, type}. Without a type the value decides.
func (c *compiler) variable(m map[string]any, scope types.Scope, where string) (types.Variable, bool) {
	f := c.fields(where, m, "name", "value")
	name := f.need("name")
	if name == "" {
		return types.Variable{}, false
	}
	var (
		vt  types.VarType
		val any
		err error
	)
	if t := f.str("type"); t != "" {
		vt = types.VarType(t)
		val, err = state.Coerce(vt, m["value"])
	} else {
		vt, val, err = state.Infer(m["value"])
	}
	if err != nil {
		c.ve.errorf("%s: variable %q: %v", where, name, err)
		return types.Variable{}, false
	}
	return types.Variable{
		ID:    state.NewVariableID(),
		Name:  name,
		Type:  vt,
		Value: val,
		Scope: scope,
	}, true
}

// rule compiles a rule map. ok is false if any part failed.
func (c *compiler) rule(m map[string]any, where string) (types.Rule, bool) {
	before := len(c.ve.Errors)
	f := c.fields(where, m, ruleKeys...)
	r := types.Rule{
		ID:       f.need("id"),
		Name:     f.str("name"),
		Priority: f.integer("priority"),
		Disabled: f.flag("disabled", false),
	}

	if tm := f.dict("trigger"); tm != nil {
		r.Trigger = c.trigger(tm, where+" trigger")
	} else {
		f.fail("trigger is required")
	}

	for i, item := range f.list("conditions") {
		sub := fmt.Sprintf("%s condition %d", where, i+1)
		cm, ok := item.(map[string]any)
		if !ok {
			c.ve.errorf("%s: must be a table", sub)
			continue
		}
		r.Conditions = append(r.Conditions, c.condition(cm, sub))
	}

	for i, item := range f.list("actions") {
		sub := fmt.Sprintf("%s action %d", where, i+1)
		am, ok := item.(map[string]any)
		if !ok {
			c.ve.errorf("%s: must be a table", sub)
			continue
		}
		r.Actions = append(r.Actions, c.action(am, sub))
	}

	return r, len(c.ve.Errors) == before
}

func kindOf(m map[string]any) string {
	s, _ := m["type"].(string)
	return s
}

func (c *compiler) trigger(m map[string]any, where string) types.Trigger {
	kind := kindOf(m)
	keys, ok := triggerKeys[kind]
	if !ok {
		c.ve.errorf("%s: unknown trigger type %q", where, kind)
		return nil
	}
	f := c.fields(where, m, keys...)
	switch kind {
	case "OnKeyDown":
		return types.OnKeyDown{Key: f.need("key")}
	case "OnKeyUp":
		return types.OnKeyUp{Key: f.need("key")}
	case "OnClick":
		return types.OnClick{Button: f.integer("button")}
	case "OnAxis":
		return types.OnAxis{Axis: f.need("axis"), Threshold: f.numOr("threshold", types.DefaultAxisThreshold)}
	case "OnCollision":
		return types.OnCollision{WithTag: f.str("tag")}
	case "OnCollisionExit":
		return types.OnCollisionExit{WithTag: f.str("tag")}
	case "OnTriggerEnter":
		return types.OnTriggerEnter{WithTag: f.str("tag")}
	case "OnEventSignal":
		return types.OnEventSignal{Signal: f.need("signal")}
	case "OnTick":
		return types.OnTick{}
	case "OnStart":
		return types.OnStart{}
	case "OnDestroy":
		return types.OnDestroy{}
	default: // OnTimer
		return types.OnTimer{IntervalMs: f.num("interval"), Repeat: f.flag("repeat", false)}
	}
}

func (c *compiler) condition(m map[string]any, where string) types.Condition {
	kind := kindOf(m)
	keys, ok := conditionKeys[kind]
	if !ok {
		c.ve.errorf("%s: unknown condition type %q", where, kind)
		return nil
	}
	f := c.fields(where, m, keys...)
	switch kind {
	case "Compare":
		cmp := types.Compare{
			Variable: f.need("variable"),
			Value:    f.literal("value"),
			Scope:    f.scope(),
			EntityID: f.str("entity"),
		}
		if raw := f.need("operator"); raw != "" {
			op, ok := operators[raw]
			if !ok {
				f.fail("unknown operator %q", raw)
			}
			cmp.Operator = op
		}
		return cmp
	case "IsGrounded":
		return types.IsGrounded{EntityID: f.str("entity")}
	case "RaycastHit":
		return types.RaycastHit{DX: f.num("dx"), DY: f.num("dy"), Distance: f.num("distance"), WithTag: f.str("tag")}
	case "HasVariable":
		return types.HasVariable{Variable: f.need("variable"), Scope: f.scope(), EntityID: f.str("entity")}
	case "HasTag":
		return types.HasTag{Tag: f.need("tag"), EntityID: f.str("entity")}
	case "IsActive":
		return types.IsActive{EntityID: f.str("entity"), Expected: f.flag("expected", true)}
	case "CooldownReady":
		return types.CooldownReady{CooldownID: f.need("cooldown")}
	default: // Not
		inner := f.dict("inner")
		if inner == nil {
			f.fail("inner is required")
			return types.Not{}
		}
		return types.Not{Inner: c.condition(inner, where+" inner")}
	}
}

func (c *compiler) action(m map[string]any, where string) types.Action {
	kind := kindOf(m)
	keys, ok := actionKeys[kind]
	if !ok {
		c.ve.errorf("%s: unknown action type %q", where, kind)
		return nil
	}
	f := c.fields(where, m, keys...)
	switch kind {
	case "Set":
		return types.Set{Variable: f.need("variable"), Value: f.literal("value"), Scope: f.scope(), EntityID: f.str("entity")}
	case "Add":
		return types.Add{Variable: f.need("variable"), Amount: f.num("amount"), AmountVar: f.str("amountVar"),
			Scope: f.scope(), EntityID: f.str("entity")}
	case "Subtract":
		return types.Subtract{Variable: f.need("variable"), Amount: f.num("amount"), AmountVar: f.str("amountVar"),
			Scope: f.scope(), EntityID: f.str("entity")}
	case "Move":
		return types.Move{EntityID: f.str("entity"), DX: f.num("dx"), DY: f.num("dy"), Speed: f.num("speed")}
	case "ApplyForce":
		return types.ApplyForce{EntityID: f.str("entity"), FX: f.num("fx"), FY: f.num("fy")}
	case "SetVelocity":
		return types.SetVelocity{EntityID: f.str("entity"), VX: f.num("vx"), VY: f.num("vy")}
	case "Teleport":
		return types.Teleport{EntityID: f.str("entity"), X: f.num("x"), Y: f.num("y"), Relative: f.flag("relative", false)}
	case "Spawn":
		return types.Spawn{
			TemplateID: f.need("template"),
			X:          f.num("x"),
			Y:          f.num("y"),
			EntityID:   f.str("entity"),
			UsePool:    f.flag("pool", false),
			PoolSize:   f.integer("poolSize"),
		}
	case "PlayAnimation":
		return types.PlayAnimation{EntityID: f.str("entity"), Animation: f.need("animation"), Loop: f.flag("loop", false)}
	case "SetSprite":
		return types.SetSprite{EntityID: f.str("entity"), SpriteKey: f.need("sprite")}
	case "SetMaterial":
		return types.SetMaterial{EntityID: f.str("entity"), MaterialID: f.need("material")}
	case "LoadScene":
		return types.LoadScene{SceneName: f.need("scene"), Transition: f.str("transition"), Data: f.dict("data")}
	case "ShowDialog":
		return types.ShowDialog{
			DialogID: f.need("dialog"),
			Speaker:  f.str("speaker"),
			Portrait: f.str("portrait"),
			Choices:  c.choices(f),
		}
	case "EmitSignal":
		return types.EmitSignal{Signal: f.need("signal")}
	case "StartCooldown":
		return types.StartCooldown{CooldownID: f.need("cooldown"), DurationMs: f.num("duration"), DurationVar: f.str("durationVar")}
	case "SetActive":
		return types.SetActive{EntityID: f.str("entity"), Active: f.flag("active", true)}
	case "Destroy":
		return types.Destroy{EntityID: f.str("entity"), DelayMs: f.num("delay")}
	case "PlayEffect":
		return types.PlayEffect{
			PresetID: f.need("preset"),
			X:        f.num("x"),
			Y:        f.num("y"),
			Scale:    f.numOr("scale", 1),
			EntityID: f.str("entity"),
		}
	case "StopSound":
		return types.StopSound{SoundID: f.need("sound")}
	default: // PlaySound
		return types.PlaySound{SoundID: f.need("sound"), Volume: f.numOr("volume", 1), Loop: f.flag("loop", false)}
	}
}

func (c *compiler) choices(f *fields) []types.Choice {
	var out []types.Choice
	for i, item := range f.list("choices") {
		m, ok := item.(map[string]any)
		if !ok {
			f.fail("choice %d must be a table", i+1)
			continue
		}
		cf := c.fields(fmt.Sprintf("%s choice %d", f.where, i+1), m, "text", "signal")
		out = append(out, types.Choice{Text: cf.need("text"), Signal: cf.str("signal")})
	}
	return out
}

// sortedLuaFiles returns .lua files in a directory, with scene.lua first
// and the rest sorted alphabetically.
func sortedLuaFiles(files []string) []string {
	var sceneFile string
	var others []string
	for _, f := range files {
		if f == "scene.lua" {
			sceneFile = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if sceneFile != "" {
		return append([]string{sceneFile}, others...)
	}
	return others
}
