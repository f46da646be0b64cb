package tools

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

// CheckParity verifies that every handle-form tool has a path-form twin
// with the same parameters, defaults and mutation flag, and the reverse.
func CheckParity(catalogue []types.Tool) error {
	byName := make(map[string]types.Tool, len(catalogue))
	for _, t := range catalogue {
		byName[t.Name] = t
	}

	var errs []error
	for _, t := range catalogue {
		switch t.Form {
		case types.FormHandle:
			twin, ok := byName[t.Name+PathSuffix]
			if !ok || twin.Form != types.FormPath {
				errs = append(errs, fmt.Errorf("%s has no %s%s twin", t.Name, t.Name, PathSuffix))
				continue
			}
			errs = append(errs, comparePair(t, twin)...)
		case types.FormPath:
			base := strings.TrimSuffix(t.Name, PathSuffix)
			if base == t.Name {
				errs = append(errs, fmt.Errorf("%s is a path-form tool without the %s suffix", t.Name, PathSuffix))
				continue
			}
			if twin, ok := byName[base]; !ok || twin.Form != types.FormHandle {
				errs = append(errs, fmt.Errorf("%s has no handle-form twin %s", t.Name, base))
			}
		}
	}
	return errors.Join(errs...)
}

func comparePair(handle, path types.Tool) []error {
	var errs []error
	if handle.Mutates != path.Mutates {
		errs = append(errs, fmt.Errorf("%s: mutates differs between forms", handle.Name))
	}
	if handle.Category != path.Category {
		errs = append(errs, fmt.Errorf("%s: category differs between forms", handle.Name))
	}

	hp, err := stripIdentifier(handle, ParamHandle)
	if err != nil {
		return append(errs, err)
	}
	pp, err := stripIdentifier(path, ParamSourcePath)
	if err != nil {
		return append(errs, err)
	}
	if !reflect.DeepEqual(hp, pp) {
		errs = append(errs, fmt.Errorf("%s: parameters differ between forms", handle.Name))
	}
	return errs
}

func stripIdentifier(t types.Tool, ident string) ([]types.Param, error) {
	var out []types.Param
	found := false
	for _, p := range t.Params {
		if p.Name == ident {
			if !p.Required {
				return nil, fmt.Errorf("%s: %s must be required", t.Name, ident)
			}
			found = true
			continue
		}
		out = append(out, p)
	}
	if !found {
		return nil, fmt.Errorf("%s: missing %s parameter", t.Name, ident)
	}
	return out, nil
}
