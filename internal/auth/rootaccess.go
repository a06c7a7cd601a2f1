package auth

import "fmt"

// Method is one callable exposed by a capability provider: a bag of
// named functions taking pre-decoded args and returning a result or
// error. RootAccess.Invoke calls these by name, on behalf of
// apiserver's RootAccessMethodTable.
type Method func(args []interface{}) (interface{}, error)

// MethodProvider is anything that can contribute named methods to a
// RootAccess's fused dispatch table.
type MethodProvider interface {
	Methods() map[string]Method
}

// RootAccess replaces the source system's ad-hoc "splice two objects'
// methods into one bag" pattern (§9) with an explicit dispatch table
// built once, at construction, from two capability providers — with a
// hard failure on any name collision rather than silently letting one
// provider's method shadow the other's.
type RootAccess struct {
	methods map[string]Method
}

// NewRootAccess fuses root's own methods with those of granted (the
// AuthorAccess-shaped capability a Root token also carries in dev mode,
// per §4.5's useToken override). Panics on a duplicate method name: that
// is a construction-time programming error, not a runtime condition to
// recover from.
func NewRootAccess(root, granted MethodProvider) *RootAccess {
	fused := make(map[string]Method)
	for name, m := range root.Methods() {
		fused[name] = m
	}
	for name, m := range granted.Methods() {
		if _, exists := fused[name]; exists {
			panic(fmt.Sprintf("auth: RootAccess method collision on %q", name))
		}
		fused[name] = m
	}
	return &RootAccess{methods: fused}
}

// Invoke calls the named method, reporting whether it exists.
func (r *RootAccess) Invoke(name string, args []interface{}) (interface{}, bool, error) {
	m, ok := r.methods[name]
	if !ok {
		return nil, false, nil
	}
	result, err := m(args)
	return result, true, err
}

// Names lists every fused method name, for whitelist verification
// (§4.6: "verify that methodName is a whitelisted capability of the
// target's class").
func (r *RootAccess) Names() []string {
	names := make([]string, 0, len(r.methods))
	for n := range r.methods {
		names = append(names, n)
	}
	return names
}

// MethodSet is a ready-made MethodProvider for callers that just want to
// hand over a map of methods (e.g. internal/app, which builds the root
// and dev-mode granted method sets over its session registry) without
// declaring a new named type.
type MethodSet map[string]Method

func (s MethodSet) Methods() map[string]Method { return map[string]Method(s) }
