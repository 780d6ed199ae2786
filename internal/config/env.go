package config

import (
	"fmt"
	"strings"

	"github.com/gridmon/rsv-probe/internal/errors"
)

// EnvAction is the operation applied to one environment variable.
type EnvAction string

const (
	EnvSet     EnvAction = "SET"
	EnvUnset   EnvAction = "UNSET"
	EnvAppend  EnvAction = "APPEND"
	EnvPrepend EnvAction = "PREPEND"
)

// VDTLocationPlaceholder is replaced by the resolved VDT location in env values.
const VDTLocationPlaceholder = "!!VDT_LOCATION!!"

// validEnvActions lists the accepted actions in display order.
var validEnvActions = []EnvAction{EnvSet, EnvUnset, EnvAppend, EnvPrepend}

// EnvironmentAction is one parsed `VAR = ACTION | VALUE` entry.
type EnvironmentAction struct {
	Name   string    `yaml:"name"`
	Action EnvAction `yaml:"action"`
	Value  string    `yaml:"value"`
}

// ParseEnvironmentAction parses the raw value of an env section entry.
func ParseEnvironmentAction(name, raw, vdtLocation string) (EnvironmentAction, error) {
	actionText, value, found := strings.Cut(raw, "|")
	if !found {
		return EnvironmentAction{}, errors.New(errors.ErrConfigInvalid,
			fmt.Sprintf("invalid environment config setting. Invalid entry: %s = %s", name, raw),
			"Format must be VAR = ACTION | VALUE")
	}

	action := EnvAction(strings.ToUpper(strings.TrimSpace(actionText)))
	if !isValidEnvAction(action) {
		names := make([]string, len(validEnvActions))
		for i, a := range validEnvActions {
			names[i] = string(a)
		}
		return EnvironmentAction{}, errors.New(errors.ErrConfigInvalid,
			fmt.Sprintf("invalid environment config setting. Invalid entry: %s = %s", name, raw),
			"Format must be VAR = ACTION | VALUE. ACTION must be one of: "+strings.Join(names, " "))
	}

	value = strings.TrimSpace(value)
	value = strings.ReplaceAll(value, VDTLocationPlaceholder, vdtLocation)

	return EnvironmentAction{Name: name, Action: action, Value: value}, nil
}

func isValidEnvAction(a EnvAction) bool {
	for _, v := range validEnvActions {
		if a == v {
			return true
		}
	}
	return false
}

// ApplyEnvironment returns a copy of base (KEY=VALUE pairs) with the actions
// applied in order. APPEND and PREPEND join with ':' when the variable is
// already set and non-empty.
func ApplyEnvironment(base []string, actions []EnvironmentAction) []string {
	values := make(map[string]string, len(base))
	var order []string
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if _, seen := values[k]; !seen {
			order = append(order, k)
		}
		values[k] = v
	}

	for _, a := range actions {
		existing, set := values[a.Name]
		switch a.Action {
		case EnvUnset:
			delete(values, a.Name)
			continue
		case EnvSet:
			values[a.Name] = a.Value
		case EnvAppend:
			if set && existing != "" {
				values[a.Name] = existing + ":" + a.Value
			} else {
				values[a.Name] = a.Value
			}
		case EnvPrepend:
			if set && existing != "" {
				values[a.Name] = a.Value + ":" + existing
			} else {
				values[a.Name] = a.Value
			}
		}
		if !set {
			order = append(order, a.Name)
		}
	}

	env := make([]string, 0, len(values))
	for _, k := range order {
		v, ok := values[k]
		if !ok {
			continue
		}
		env = append(env, k+"="+v)
		// a name re-added after UNSET appears twice in order
		delete(values, k)
	}
	return env
}
