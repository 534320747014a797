package loader

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/nathoo/ecacore/engine/state"
	"github.com/nathoo/ecacore/types"
)

//go:embed preset.schema.json
var presetSchema string

var presetSchemaLoader = gojsonschema.NewStringLoader(presetSchema)

// presetFiles compiles every *.json file in dir into defs.Presets. A
// missing directory is not an error.
func (c *compiler) presetFiles(defs *state.Defs, dir string) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		c.ve.errorf("reading presets directory %s: %v", dir, err)
		return
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			c.ve.errorf("%s: %v", name, err)
			continue
		}
		p, ok := c.presetJSON(data, name)
		if !ok {
			continue
		}
		if _, dup := defs.Presets[p.ID]; dup {
			c.ve.errorf("%s: duplicate preset id %q", name, p.ID)
			continue
		}
		defs.Presets[p.ID] = p
	}
}

// presetJSON validates one preset document against the schema and
// compiles it through the same map compiler the Lua DSL uses.
func (c *compiler) presetJSON(data []byte, where string) (types.EntityPreset, bool) {
	result, err := gojsonschema.Validate(presetSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		c.ve.errorf("%s: %v", where, err)
		return types.EntityPreset{}, false
	}
	if !result.Valid() {
		for _, desc := range result.Errors() {
			c.ve.errorf("%s: %s", where, desc.String())
		}
		return types.EntityPreset{}, false
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		c.ve.errorf("%s: %v", where, err)
		return types.EntityPreset{}, false
	}

	before := len(c.ve.Errors)
	f := c.fields(where, m, "id", "label", "description", "variables", "rules")
	p := types.EntityPreset{
		ID:          f.need("id"),
		Label:       f.str("label"),
		Description: f.str("description"),
		Variables:   c.variables(m["variables"], types.ScopeEntity, where),
	}
	for i, item := range f.list("rules") {
		rm, ok := item.(map[string]any)
		if !ok {
			c.ve.errorf("%s: rule %d must be an object", where, i+1)
			continue
		}
		id, _ := rm["id"].(string)
		if r, ok := c.rule(rm, fmt.Sprintf("%s rule %q", where, id)); ok {
			p.Rules = append(p.Rules, r)
		}
	}
	return p, len(c.ve.Errors) == before
}
