package conversation

import (
	"fmt"
	"sort"
	"strings"
)

// State names one step inside one flow group, written "group.step".
type State struct {
	Group string
	Step  string
}

func S(group, step string) State { return State{Group: group, Step: step} }

func (s State) String() string {
	if s.IsZero() {
		return ""
	}
	return s.Group + "." + s.Step
}

func (s State) IsZero() bool { return s.Group == "" && s.Step == "" }

func ParseState(v string) (State, error) {
	group, step, ok := strings.Cut(v, ".")
	if !ok || group == "" || step == "" {
		return State{}, fmt.Errorf("parse state %q: want group.step", v)
	}
	return State{Group: group, Step: step}, nil
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*s = State{}
		return nil
	}
	v, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type stateGuardKind int

const (
	guardAny stateGuardKind = iota
	guardState
	guardGroup
)

// StateGuard restricts a transition to a state, a whole group, or nothing.
type StateGuard struct {
	kind  stateGuardKind
	state State
	group string
}

func AnyState() StateGuard { return StateGuard{kind: guardAny} }

func InState(s State) StateGuard { return StateGuard{kind: guardState, state: s} }

func InGroup(group string) StateGuard { return StateGuard{kind: guardGroup, group: group} }

func (g StateGuard) Match(s State) bool {
	switch g.kind {
	case guardState:
		return s == g.state
	case guardGroup:
		return s.Group == g.group
	default:
		return true
	}
}

func (g StateGuard) String() string {
	switch g.kind {
	case guardState:
		return g.state.String()
	case guardGroup:
		return g.group + ".*"
	default:
		return "*"
	}
}

// Registry is the closed set of states a session may be in.
type Registry struct {
	states map[State]struct{}
	groups map[string]struct{}
}

func NewRegistry(states ...State) *Registry {
	r := &Registry{states: map[State]struct{}{}, groups: map[string]struct{}{}}
	r.Add(states...)
	return r
}

// Add registers states. It panics on a malformed state since registries are
// built once at startup.
func (r *Registry) Add(states ...State) {
	for _, s := range states {
		if s.Group == "" || s.Step == "" || strings.Contains(s.Group, ".") {
			panic(fmt.Sprintf("conversation: malformed state %q", s.String()))
		}
		r.states[s] = struct{}{}
		r.groups[s.Group] = struct{}{}
	}
}

func (r *Registry) Has(s State) bool {
	_, ok := r.states[s]
	return ok
}

func (r *Registry) HasGroup(group string) bool {
	_, ok := r.groups[group]
	return ok
}

// States returns all registered states sorted by name.
func (r *Registry) States() []State {
	out := make([]State, 0, len(r.states))
	for s := range r.states {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (r *Registry) validGuard(g StateGuard) bool {
	switch g.kind {
	case guardState:
		return r.Has(g.state)
	case guardGroup:
		return r.HasGroup(g.group)
	default:
		return true
	}
}
