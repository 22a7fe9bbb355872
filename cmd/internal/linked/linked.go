// Package linked lists the libraries compiled into the command-line tools.
package linked

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wippyai/com-runtime/com"
	"github.com/wippyai/com-runtime/examples/calculator/calc"
)

var libraries = map[string]func() (*com.Library, error){
	calc.LibraryName: calc.Library,
}

// Names returns the linked library names in order.
func Names() []string {
	names := make([]string, 0, len(libraries))
	for name := range libraries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load loads a linked library by name.
func Load(name string) (*com.Library, error) {
	load, ok := libraries[name]
	if !ok {
		return nil, fmt.Errorf("unknown library %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return load()
}
