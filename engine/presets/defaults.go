package presets

import "github.com/nathoo/ecacore/types"

// Built-in preset ids.
const (
	PlayerPlatformer = "player_platformer"
	PlayerTopDown    = "player_topdown"
	EnemyChaser      = "enemy_chaser"
)

// chaserCooldown is per enemy: each stamped entity gets its own attack timer.
const chaserCooldown = "@self.attack"

func num(name string, v float64) types.Variable {
	return types.Variable{Name: name, Type: types.VarFloat, Value: v, Scope: types.ScopeEntity}
}

func str(name, v string) types.Variable {
	return types.Variable{Name: name, Type: types.VarString, Value: v, Scope: types.ScopeEntity}
}

func move(id, key string, dx, dy float64) types.Rule {
	return types.Rule{
		ID:      id,
		Trigger: types.OnKeyDown{Key: key},
		Actions: []types.Action{types.Move{DX: dx, DY: dy, Speed: 200}},
	}
}

// Defaults returns the built-in presets.
func Defaults() []types.EntityPreset {
	return []types.EntityPreset{
		{
			ID:          PlayerPlatformer,
			Label:       "Player (Platformer)",
			Description: "Side-scrolling hero that runs left and right and jumps.",
			Variables: []types.Variable{
				str("movement", "Platformer"),
				num("maxSpeed", 200),
				num("jumpForce", 400),
				num("gravity", 800),
				num("hp", 100),
				num("maxHp", 100),
				num("attack", 10),
				num("defense", 0),
			},
			Rules: []types.Rule{
				{
					ID:         "jump",
					Name:       "Jump",
					Trigger:    types.OnKeyDown{Key: "Space"},
					Conditions: []types.Condition{types.IsGrounded{}},
					Actions:    []types.Action{types.ApplyForce{FY: -400}},
				},
				move("move_left", "ArrowLeft", -1, 0),
				move("move_right", "ArrowRight", 1, 0),
			},
		},
		{
			ID:          PlayerTopDown,
			Label:       "Player (TopDown/RPG)",
			Description: "RPG-style hero with free eight-way movement.",
			Variables: []types.Variable{
				str("movement", "TopDown"),
				num("maxSpeed", 200),
				num("hp", 100),
				num("maxHp", 100),
				num("mp", 50),
				num("maxMp", 50),
				num("attack", 10),
				num("defense", 5),
			},
			Rules: []types.Rule{
				move("move_up", "ArrowUp", 0, -1),
				move("move_down", "ArrowDown", 0, 1),
				move("move_left", "ArrowLeft", -1, 0),
				move("move_right", "ArrowRight", 1, 0),
			},
		},
		{
			ID:          EnemyChaser,
			Label:       "Enemy (Chaser)",
			Description: "Monster that damages the player on contact.",
			Variables: []types.Variable{
				str("movement", "TopDown"),
				num("maxSpeed", 100),
				num("attackRange", 50),
				num("damage", 10),
				num("attackInterval", 1000),
			},
			Rules: []types.Rule{
				{
					ID:         "contact_damage",
					Name:       "Contact damage",
					Trigger:    types.OnCollision{WithTag: "player"},
					Conditions: []types.Condition{types.CooldownReady{CooldownID: chaserCooldown}},
					Actions: []types.Action{
						types.Subtract{Variable: "hp", AmountVar: "damage", EntityID: "@other"},
						types.StartCooldown{CooldownID: chaserCooldown, DurationVar: "attackInterval"},
					},
				},
			},
		},
	}
}

// LoadDefaults registers every built-in preset.
func (m *Manager) LoadDefaults() {
	for _, p := range Defaults() {
		_ = m.Register(p)
	}
}
