package scenario

import (
	"embed"
	"fmt"
	"path"
)

//go:embed demos/*.yaml
var demoFS embed.FS

// DemoNames lists the built-in demos in display order.
var DemoNames = []string{"ecommerce", "microservices", "fanout", "dlq", "scaling"}

// DefaultDemo is loaded when no demo is named.
const DefaultDemo = "ecommerce"

// Catalog holds scenarios by name, in insertion order.
type Catalog struct {
	order  []string
	byName map[string]*Scenario
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{byName: make(map[string]*Scenario)}
}

// DefaultCatalog returns a catalog holding the built-in demos.
func DefaultCatalog() (*Catalog, error) {
	c := NewCatalog()
	for _, name := range DemoNames {
		file := path.Join("demos", name+".yaml")
		data, err := demoFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read demo %s: %w", name, err)
		}
		s, err := Parse(file, data)
		if err != nil {
			return nil, fmt.Errorf("demo %s: %w", name, err)
		}
		if err := c.Add(s); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add registers s. Names must be unique.
func (c *Catalog) Add(s *Scenario) error {
	if _, ok := c.byName[s.Name]; ok {
		return fmt.Errorf("scenario %q already registered", s.Name)
	}
	c.byName[s.Name] = s
	c.order = append(c.order, s.Name)
	return nil
}

// Get returns the scenario registered under name.
func (c *Catalog) Get(name string) (*Scenario, bool) {
	s, ok := c.byName[name]
	return s, ok
}

// Names returns registered names in insertion order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.order...)
}

// All returns the registered scenarios in insertion order.
func (c *Catalog) All() []*Scenario {
	out := make([]*Scenario, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byName[name])
	}
	return out
}
