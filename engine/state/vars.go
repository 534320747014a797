package state

import (
	"github.com/nathoo/ecacore/engine/fault"
	"github.com/nathoo/ecacore/types"
)

// GetVar looks a variable up by name in the given scope. For Entity scope,
// ownerID names the owning entity. An empty scope is treated as Entity.
func GetVar(s *types.Session, scope types.Scope, ownerID, name string) (types.Variable, bool) {
	vars, ok := table(s, scope, ownerID)
	if !ok {
		return types.Variable{}, false
	}
	if i := indexOf(*vars, name); i >= 0 {
		return (*vars)[i], true
	}
	return types.Variable{}, false
}

// SetVar creates or overwrites a variable. Writes to an existing variable
// are coerced to its declared type and fail with TypeMismatch when that is
// impossible; new variables take the type of the value.
func SetVar(s *types.Session, scope types.Scope, ownerID, name string, value any) error {
	if name == "" {
		return fault.New(fault.MissingReference, "variable name is empty")
	}
	vars, ok := table(s, scope, ownerID)
	if !ok {
		return fault.New(fault.MissingReference, "no entity %q for variable %q", ownerID, name)
	}

	if i := indexOf(*vars, name); i >= 0 {
		v, err := Coerce((*vars)[i].Type, value)
		if err != nil {
			return err
		}
		(*vars)[i].Value = v
		return nil
	}

	t, v, err := Infer(value)
	if err != nil {
		return err
	}
	*vars = append(*vars, types.Variable{
		ID:    NewVariableID(),
		Name:  name,
		Type:  t,
		Value: v,
		Scope: normalize(scope),
	})
	return nil
}

// Coerce converts v to the Go representation of t. Any numeric kind is
// accepted for float; strings and bools must match exactly.
func Coerce(t types.VarType, v any) (any, error) {
	switch t {
	case types.VarFloat:
		if f, ok := ToFloat(v); ok {
			return f, nil
		}
	case types.VarString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case types.VarBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	default:
		return nil, fault.New(fault.TypeMismatch, "unknown variable type %q", t)
	}
	return nil, fault.New(fault.TypeMismatch, "cannot use %T %v as %s", v, v, t)
}

// Infer derives a variable type from a Go value.
func Infer(v any) (types.VarType, any, error) {
	switch val := v.(type) {
	case string:
		return types.VarString, val, nil
	case bool:
		return types.VarBool, val, nil
	}
	if f, ok := ToFloat(v); ok {
		return types.VarFloat, f, nil
	}
	return "", nil, fault.New(fault.TypeMismatch, "unsupported value %T", v)
}

// ToFloat converts any Go numeric kind to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func table(s *types.Session, scope types.Scope, ownerID string) (*[]types.Variable, bool) {
	if normalize(scope) == types.ScopeGlobal {
		return &s.Globals, true
	}
	e, ok := s.Entities[ownerID]
	if !ok {
		return nil, false
	}
	return &e.Variables, true
}

func normalize(scope types.Scope) types.Scope {
	if scope == types.ScopeGlobal {
		return types.ScopeGlobal
	}
	return types.ScopeEntity
}

func indexOf(vars []types.Variable, name string) int {
	for i := range vars {
		if vars[i].Name == name {
			return i
		}
	}
	return -1
}
