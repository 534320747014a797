package loader

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/ecacore/types"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerTriggerHelpers(L)
	registerConditionHelpers(L)
	registerActionHelpers(L)
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Scene { title = "...", ... }
	L.SetGlobal("Scene", L.NewFunction(func(L *lua.LState) int {
		coll.scene = L.CheckTable(1)
		return 0
	}))

	// Global("name", value [, "type"])
	L.SetGlobal("Global", L.NewFunction(func(L *lua.LState) int {
		coll.globals = append(coll.globals, varTable(L))
		return 0
	}))

	// Var("name", value [, "type"]): entity or preset variable.
	L.SetGlobal("Var", L.NewFunction(func(L *lua.LState) int {
		L.Push(varTable(L))
		return 1
	}))

	// Entity "id" { ... }, curried.
	L.SetGlobal("Entity", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			coll.entities = append(coll.entities, rawDef{id: id, table: L.CheckTable(1)})
			return 0
		}))
		return 1
	}))

	// Preset "id" { ... }, curried.
	L.SetGlobal("Preset", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			coll.presets = append(coll.presets, rawDef{id: id, table: L.CheckTable(1)})
			return 0
		}))
		return 1
	}))

	// Rule("id", trigger, conditions, actions [, options])
	// Rule("id", trigger, actions)
	// Returns a marker table with __rule_id so entities and presets can
	// claim the rule; unclaimed rules become scene rules.
	L.SetGlobal("Rule", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		trigger := L.CheckTable(2)

		var conditions, actions, options *lua.LTable
		if L.Get(4) != lua.LNil {
			// 4-arg form: conditions may be nil.
			if t, ok := L.Get(3).(*lua.LTable); ok {
				conditions = t
			}
			actions = L.CheckTable(4)
			options = L.OptTable(5, nil)
		} else {
			actions = L.CheckTable(3)
		}

		coll.rules = append(coll.rules, rawRule{
			id:         id,
			trigger:    trigger,
			conditions: conditions,
			actions:    actions,
			options:    options,
		})

		marker := L.NewTable()
		marker.RawSetString("__rule_id", lua.LString(id))
		L.Push(marker)
		return 1
	}))
}

// varTable builds {name=, value=, type=} from the call arguments.
func varTable(L *lua.LState) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("name", lua.LString(L.CheckString(1)))
	tbl.RawSetString("value", L.CheckAny(2))
	if t := L.OptString(3, ""); t != "" {
		tbl.RawSetString("type", lua.LString(t))
	}
	return tbl
}

// typed returns a new table tagged with a variant type.
func typed(L *lua.LState, kind string) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("type", lua.LString(kind))
	return tbl
}

// mergeOptions copies the string-keyed fields of an optional options table
// argument into tbl.
func mergeOptions(L *lua.LState, tbl *lua.LTable, n int) {
	opts, ok := L.Get(n).(*lua.LTable)
	if !ok {
		return
	}
	opts.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok && ks != "type" {
			tbl.RawSetString(string(ks), v)
		}
	})
}

// setEntity stores an optional entity reference argument.
func setEntity(L *lua.LState, tbl *lua.LTable, n int) {
	if s, ok := L.Get(n).(lua.LString); ok {
		tbl.RawSetString("entity", s)
	}
}

func registerTriggerHelpers(L *lua.LState) {
	// OnKeyDown("Space")
	L.SetGlobal("OnKeyDown", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "OnKeyDown")
		tbl.RawSetString("key", lua.LString(L.CheckString(1)))
		L.Push(tbl)
		return 1
	}))

	// OnKeyUp("Space")
	L.SetGlobal("OnKeyUp", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "OnKeyUp")
		tbl.RawSetString("key", lua.LString(L.CheckString(1)))
		L.Push(tbl)
		return 1
	}))

	// OnClick([button])
	L.SetGlobal("OnClick", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "OnClick")
		tbl.RawSetString("button", lua.LNumber(L.OptInt(1, 0)))
		L.Push(tbl)
		return 1
	}))

	// OnAxis("horizontal" [, threshold])
	L.SetGlobal("OnAxis", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "OnAxis")
		tbl.RawSetString("axis", lua.LString(L.CheckString(1)))
		tbl.RawSetString("threshold", lua.LNumber(L.OptNumber(2, lua.LNumber(types.DefaultAxisThreshold))))
		L.Push(tbl)
		return 1
	}))

	// OnCollision(["tag"])
	L.SetGlobal("OnCollision", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "OnCollision")
		if tag := L.OptString(1, ""); tag != "" {
			tbl.RawSetString("tag", lua.LString(tag))
		}
		L.Push(tbl)
		return 1
	}))

	// OnCollisionExit(["tag"])
	L.SetGlobal("OnCollisionExit", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "OnCollisionExit")
		if tag := L.OptString(1, ""); tag != "" {
			tbl.RawSetString("tag", lua.LString(tag))
		}
		L.Push(tbl)
		return 1
	}))

	// OnTriggerEnter(["tag"])
	L.SetGlobal("OnTriggerEnter", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "OnTriggerEnter")
		if tag := L.OptString(1, ""); tag != "" {
			tbl.RawSetString("tag", lua.LString(tag))
		}
		L.Push(tbl)
		return 1
	}))

	// OnSignal("NAME")
	L.SetGlobal("OnSignal", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "OnEventSignal")
		tbl.RawSetString("signal", lua.LString(L.CheckString(1)))
		L.Push(tbl)
		return 1
	}))

	// OnTick()
	L.SetGlobal("OnTick", L.NewFunction(func(L *lua.LState) int {
		L.Push(typed(L, "OnTick"))
		return 1
	}))

	// OnStart()
	L.SetGlobal("OnStart", L.NewFunction(func(L *lua.LState) int {
		L.Push(typed(L, "OnStart"))
		return 1
	}))

	// OnTimer(ms [, repeat])
	L.SetGlobal("OnTimer", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "OnTimer")
		tbl.RawSetString("interval", L.CheckNumber(1))
		tbl.RawSetString("repeat", lua.LBool(L.OptBool(2, false)))
		L.Push(tbl)
		return 1
	}))

	// OnDestroy()
	L.SetGlobal("OnDestroy", L.NewFunction(func(L *lua.LState) int {
		L.Push(typed(L, "OnDestroy"))
		return 1
	}))
}

func registerConditionHelpers(L *lua.LState) {
	// Compare("var", op, value [, { scope = "Global", entity = "id" }])
	L.SetGlobal("Compare", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "Compare")
		tbl.RawSetString("variable", lua.LString(L.CheckString(1)))
		tbl.RawSetString("operator", lua.LString(L.CheckString(2)))
		tbl.RawSetString("value", L.CheckAny(3))
		mergeOptions(L, tbl, 4)
		L.Push(tbl)
		return 1
	}))

	// IsGrounded(["entity"])
	L.SetGlobal("IsGrounded", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "IsGrounded")
		setEntity(L, tbl, 1)
		L.Push(tbl)
		return 1
	}))

	// RaycastHit(dx, dy, distance [, "tag"])
	L.SetGlobal("RaycastHit", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "RaycastHit")
		tbl.RawSetString("dx", L.CheckNumber(1))
		tbl.RawSetString("dy", L.CheckNumber(2))
		tbl.RawSetString("distance", L.CheckNumber(3))
		if tag := L.OptString(4, ""); tag != "" {
			tbl.RawSetString("tag", lua.LString(tag))
		}
		L.Push(tbl)
		return 1
	}))

	// HasVariable("var" [, options])
	L.SetGlobal("HasVariable", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "HasVariable")
		tbl.RawSetString("variable", lua.LString(L.CheckString(1)))
		mergeOptions(L, tbl, 2)
		L.Push(tbl)
		return 1
	}))

	// HasTag("tag" [, "entity"])
	L.SetGlobal("HasTag", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "HasTag")
		tbl.RawSetString("tag", lua.LString(L.CheckString(1)))
		setEntity(L, tbl, 2)
		L.Push(tbl)
		return 1
	}))

	// IsActive(["entity"] [, expected])
	L.SetGlobal("IsActive", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "IsActive")
		setEntity(L, tbl, 1)
		tbl.RawSetString("expected", lua.LBool(L.OptBool(2, true)))
		L.Push(tbl)
		return 1
	}))

	// CooldownReady("id")
	L.SetGlobal("CooldownReady", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "CooldownReady")
		tbl.RawSetString("cooldown", lua.LString(L.CheckString(1)))
		L.Push(tbl)
		return 1
	}))

	// Not(condition)
	L.SetGlobal("Not", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "Not")
		tbl.RawSetString("inner", L.CheckTable(1))
		L.Push(tbl)
		return 1
	}))
}

func registerActionHelpers(L *lua.LState) {
	// Set("var", value [, options]), Add/Subtract("var", amount [, options]).
	// A string amount names a variable on the acting entity.
	for _, kind := range []string{"Set", "Add", "Subtract"} {
		kind := kind
		L.SetGlobal(kind, L.NewFunction(func(L *lua.LState) int {
			tbl := typed(L, kind)
			tbl.RawSetString("variable", lua.LString(L.CheckString(1)))
			if kind == "Set" {
				tbl.RawSetString("value", L.CheckAny(2))
			} else if name, ok := L.Get(2).(lua.LString); ok {
				tbl.RawSetString("amountVar", name)
			} else {
				tbl.RawSetString("amount", L.CheckNumber(2))
			}
			mergeOptions(L, tbl, 3)
			L.Push(tbl)
			return 1
		}))
	}

	// Move(dx, dy, speed [, "entity"])
	L.SetGlobal("Move", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "Move")
		tbl.RawSetString("dx", L.CheckNumber(1))
		tbl.RawSetString("dy", L.CheckNumber(2))
		tbl.RawSetString("speed", L.CheckNumber(3))
		setEntity(L, tbl, 4)
		L.Push(tbl)
		return 1
	}))

	// ApplyForce(fx, fy [, "entity"])
	L.SetGlobal("ApplyForce", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "ApplyForce")
		tbl.RawSetString("fx", L.CheckNumber(1))
		tbl.RawSetString("fy", L.CheckNumber(2))
		setEntity(L, tbl, 3)
		L.Push(tbl)
		return 1
	}))

	// Jump(force [, "entity"]) is an upward ApplyForce.
	L.SetGlobal("Jump", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "ApplyForce")
		tbl.RawSetString("fx", lua.LNumber(0))
		tbl.RawSetString("fy", -L.CheckNumber(1))
		setEntity(L, tbl, 2)
		L.Push(tbl)
		return 1
	}))

	// SetVelocity(vx, vy [, "entity"])
	L.SetGlobal("SetVelocity", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "SetVelocity")
		tbl.RawSetString("vx", L.CheckNumber(1))
		tbl.RawSetString("vy", L.CheckNumber(2))
		setEntity(L, tbl, 3)
		L.Push(tbl)
		return 1
	}))

	// Teleport(x, y [, { relative = true, entity = "id" }])
	L.SetGlobal("Teleport", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "Teleport")
		tbl.RawSetString("x", L.CheckNumber(1))
		tbl.RawSetString("y", L.CheckNumber(2))
		mergeOptions(L, tbl, 3)
		L.Push(tbl)
		return 1
	}))

	// Spawn("template" [, { x =, y =, entity =, pool =, poolSize = }])
	L.SetGlobal("Spawn", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "Spawn")
		tbl.RawSetString("template", lua.LString(L.CheckString(1)))
		mergeOptions(L, tbl, 2)
		L.Push(tbl)
		return 1
	}))

	// ShowDialog("id" [, { speaker =, portrait =, choices = {{ text =, signal = }} }])
	L.SetGlobal("ShowDialog", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "ShowDialog")
		tbl.RawSetString("dialog", lua.LString(L.CheckString(1)))
		mergeOptions(L, tbl, 2)
		L.Push(tbl)
		return 1
	}))

	// PlayAnimation("name" [, { loop =, entity = }])
	L.SetGlobal("PlayAnimation", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "PlayAnimation")
		tbl.RawSetString("animation", lua.LString(L.CheckString(1)))
		mergeOptions(L, tbl, 2)
		L.Push(tbl)
		return 1
	}))

	// SetSprite("key" [, "entity"])
	L.SetGlobal("SetSprite", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "SetSprite")
		tbl.RawSetString("sprite", lua.LString(L.CheckString(1)))
		setEntity(L, tbl, 2)
		L.Push(tbl)
		return 1
	}))

	// SetMaterial("id" [, "entity"])
	L.SetGlobal("SetMaterial", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "SetMaterial")
		tbl.RawSetString("material", lua.LString(L.CheckString(1)))
		setEntity(L, tbl, 2)
		L.Push(tbl)
		return 1
	}))

	// LoadScene("name" [, { transition =, data = {} }])
	L.SetGlobal("LoadScene", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "LoadScene")
		tbl.RawSetString("scene", lua.LString(L.CheckString(1)))
		mergeOptions(L, tbl, 2)
		L.Push(tbl)
		return 1
	}))

	// EmitSignal("NAME")
	L.SetGlobal("EmitSignal", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "EmitSignal")
		tbl.RawSetString("signal", lua.LString(L.CheckString(1)))
		L.Push(tbl)
		return 1
	}))

	// StartCooldown("id", ms | "var")
	L.SetGlobal("StartCooldown", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "StartCooldown")
		tbl.RawSetString("cooldown", lua.LString(L.CheckString(1)))
		if name, ok := L.Get(2).(lua.LString); ok {
			tbl.RawSetString("durationVar", name)
		} else {
			tbl.RawSetString("duration", L.CheckNumber(2))
		}
		L.Push(tbl)
		return 1
	}))

	// SetActive(active [, "entity"])
	L.SetGlobal("SetActive", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "SetActive")
		tbl.RawSetString("active", lua.LBool(L.CheckBool(1)))
		setEntity(L, tbl, 2)
		L.Push(tbl)
		return 1
	}))

	// Destroy(["entity"] [, delayMs])
	L.SetGlobal("Destroy", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "Destroy")
		setEntity(L, tbl, 1)
		if delay := L.OptNumber(2, 0); delay > 0 {
			tbl.RawSetString("delay", delay)
		}
		L.Push(tbl)
		return 1
	}))

	// PlayEffect("preset" [, { x =, y =, scale =, entity = }])
	L.SetGlobal("PlayEffect", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "PlayEffect")
		tbl.RawSetString("preset", lua.LString(L.CheckString(1)))
		mergeOptions(L, tbl, 2)
		L.Push(tbl)
		return 1
	}))

	// PlaySound("id" [, { volume =, loop = }])
	L.SetGlobal("PlaySound", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "PlaySound")
		tbl.RawSetString("sound", lua.LString(L.CheckString(1)))
		mergeOptions(L, tbl, 2)
		L.Push(tbl)
		return 1
	}))

	// StopSound("id")
	L.SetGlobal("StopSound", L.NewFunction(func(L *lua.LState) int {
		tbl := typed(L, "StopSound")
		tbl.RawSetString("sound", lua.LString(L.CheckString(1)))
		L.Push(tbl)
		return 1
	}))
}
