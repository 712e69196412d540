package feature

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"markupcheck/internal/domain/errors/checkerr"

	"gopkg.in/yaml.v3"
)

// DefaultProfile is used when no profile is configured.
const DefaultProfile = "generic"

//go:embed profiles.yaml
var builtinProfiles []byte

// File is the layout of a profile YAML document.
type File struct {
	Profiles []Profile `yaml:"profiles"`
}

// Catalog holds compiled profiles by name.
type Catalog struct {
	profiles map[string]*Profile
}

// NewCatalog returns a catalog with the built-in profiles.
func NewCatalog() (*Catalog, error) {
	c := &Catalog{profiles: make(map[string]*Profile)}
	if err := c.Load(builtinProfiles); err != nil {
		return nil, fmt.Errorf("built-in profiles: %w", err)
	}
	return c, nil
}

// Load parses a profile YAML document and adds its profiles, replacing any
// with the same name. Nothing is added when any profile is invalid.
func (c *Catalog) Load(data []byte) error {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return checkerr.NewConfigError("invalid profile YAML").WithCause(err)
	}
	if len(f.Profiles) == 0 {
		return checkerr.NewConfigError("no profiles defined")
	}

	loaded := make([]*Profile, 0, len(f.Profiles))
	for i := range f.Profiles {
		p := f.Profiles[i]
		if err := p.Compile(); err != nil {
			return err
		}
		loaded = append(loaded, &p)
	}
	for _, p := range loaded {
		c.profiles[p.Name] = p
	}
	return nil
}

// LoadFile reads a rules file from disk.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return checkerr.NewConfigError("cannot read rules file").WithPath(path).WithCause(err)
	}
	if err := c.Load(data); err != nil {
		var ce *checkerr.CheckError
		if errors.As(err, &ce) {
			return ce.WithPath(path)
		}
		return err
	}
	return nil
}

// Get returns the named profile.
func (c *Catalog) Get(name string) (*Profile, error) {
	p, ok := c.profiles[name]
	if !ok {
		return nil, checkerr.NewConfigError(fmt.Sprintf("unknown profile %q", name)).
			WithDetails("available", c.Names())
	}
	return p, nil
}

// Names returns the profile names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.profiles))
	for n := range c.profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
