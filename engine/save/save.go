// Package save implements JSON snapshots of a scene session.
package save

import (
	"encoding/json"
	"fmt"

	"github.com/nathoo/ecacore/engine/state"
	"github.com/nathoo/ecacore/types"
)

// SaveData is the JSON-serializable snapshot format. Rules are not saved;
// they come from the scene definitions.
type SaveData struct {
	Version   string                    `json:"version"`
	Scene     string                    `json:"scene"`
	Tick      int                       `json:"tick"`
	Clock     float64                   `json:"clock"`
	Globals   []types.Variable          `json:"globals"`
	Entities  map[string]EntitySnapshot `json:"entities"`
	Order     []string                  `json:"order"`
	Cooldowns map[string]float64        `json:"cooldowns"`
}

// EntitySnapshot is the saved state of one entity.
type EntitySnapshot struct {
	Position  types.Vec2       `json:"position"`
	Velocity  types.Vec2       `json:"velocity"`
	Grounded  bool             `json:"grounded"`
	Active    bool             `json:"active"`
	Variables []types.Variable `json:"variables"`
}

// Save serializes the session to JSON bytes.
func Save(s *types.Session, defs *state.Defs) ([]byte, error) {
	data := SaveData{
		Version:   defs.Scene.Version,
		Scene:     defs.Scene.Title,
		Tick:      s.Tick,
		Clock:     s.Clock,
		Globals:   s.Globals,
		Entities:  make(map[string]EntitySnapshot, len(s.Entities)),
		Order:     s.Order,
		Cooldowns: s.Cooldowns,
	}
	for _, e := range state.Entities(s) {
		data.Entities[e.ID] = EntitySnapshot{
			Position:  e.Position,
			Velocity:  e.Velocity,
			Grounded:  e.Grounded,
			Active:    e.Active,
			Variables: e.Variables,
		}
	}
	return json.MarshalIndent(data, "", "  ")
}

// Load deserializes JSON bytes into SaveData. Variable values are coerced
// back to their declared types.
func Load(data []byte) (*SaveData, error) {
	var sd SaveData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, err
	}
	// Ensure maps are never nil after load.
	if sd.Entities == nil {
		sd.Entities = map[string]EntitySnapshot{}
	}
	if sd.Cooldowns == nil {
		sd.Cooldowns = map[string]float64{}
	}
	if err := coerceAll(sd.Globals); err != nil {
		return nil, fmt.Errorf("globals: %w", err)
	}
	for id, snap := range sd.Entities {
		if err := coerceAll(snap.Variables); err != nil {
			return nil, fmt.Errorf("entity %q: %w", id, err)
		}
	}
	return &sd, nil
}

func coerceAll(vars []types.Variable) error {
	for i := range vars {
		v, err := state.Coerce(vars[i].Type, vars[i].Value)
		if err != nil {
			return fmt.Errorf("variable %q: %w", vars[i].Name, err)
		}
		vars[i].Value = v
	}
	return nil
}

// ApplySave applies loaded save data onto a session. Snapshots of entities
// the session does not contain are skipped and their ids returned.
func ApplySave(s *types.Session, sd *SaveData) []string {
	s.Tick = sd.Tick
	s.Clock = sd.Clock
	s.Globals = append([]types.Variable(nil), sd.Globals...)
	s.Cooldowns = make(map[string]float64, len(sd.Cooldowns))
	for k, v := range sd.Cooldowns {
		s.Cooldowns[k] = v
	}

	var skipped []string
	for _, id := range snapshotOrder(sd) {
		e, ok := state.Entity(s, id)
		if !ok {
			skipped = append(skipped, id)
			continue
		}
		snap := sd.Entities[id]
		e.Position = snap.Position
		e.Velocity = snap.Velocity
		e.Grounded = snap.Grounded
		e.Active = snap.Active
		e.Variables = append([]types.Variable(nil), snap.Variables...)
	}
	return skipped
}

// snapshotOrder lists snapshot ids in saved order, then any unlisted ones.
func snapshotOrder(sd *SaveData) []string {
	seen := make(map[string]bool, len(sd.Entities))
	var ids []string
	for _, id := range sd.Order {
		if _, ok := sd.Entities[id]; ok && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for id := range sd.Entities {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	return ids
}
