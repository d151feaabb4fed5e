package uci

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Registry is the ordered set of options an engine declared at handshake.
//
// Registry is not safe for concurrent mutation. The driver fills it before
// the engine handle is returned; afterwards it is only read.
type Registry struct {
	options []Option
	index   map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Add appends opt. Names are unique, compared the way Lookup compares them.
func (r *Registry) Add(opt Option) error {
	key := foldName(opt.Name)
	if _, exists := r.index[key]; exists {
		return fmt.Errorf("duplicate option %q", opt.Name)
	}
	r.index[key] = len(r.options)
	r.options = append(r.options, opt)
	return nil
}

// Lookup finds an option by name. UCI option names are case-insensitive.
func (r *Registry) Lookup(name string) (Option, bool) {
	i, ok := r.index[foldName(name)]
	if !ok {
		return Option{}, false
	}
	return r.options[i], true
}

// Options returns the options in declaration order.
func (r *Registry) Options() []Option {
	out := make([]Option, len(r.options))
	copy(out, r.options)
	return out
}

// Len returns the number of declared options.
func (r *Registry) Len() int {
	return len(r.options)
}

func foldName(name string) string {
	return cases.Fold().String(norm.NFC.String(name))
}
