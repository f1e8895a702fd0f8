package scraper

import (
	"fmt"
	"sort"
	"strings"
)

// Factory builds a site adapter from site-specific parameters (e.g. a passcode).
type Factory func(params map[string]string) (SiteAdapter, error)

var registry = map[string]Factory{}

// Register makes a site adapter available under name. Sites call it from init.
func Register(name string, f Factory) {
	registry[strings.ToLower(name)] = f
}

// NewAdapter builds the adapter registered under name.
func NewAdapter(name string, params map[string]string) (SiteAdapter, error) {
	f, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown site: %s (available: %s)", name, strings.Join(Adapters(), ", "))
	}
	return f(params)
}

// Adapters lists registered site names in order.
func Adapters() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
