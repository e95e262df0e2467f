package intakeform

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed forms/*.yaml
var embedded embed.FS

// Catalog is an immutable set of forms keyed by service type.
type Catalog struct {
	forms map[string]Form
}

// Default loads the forms shipped with the binary.
func Default() (*Catalog, error) {
	return Load(embedded, "forms")
}

// Load reads every *.yaml under dir. The file name (without extension) must
// match the form key.
func Load(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read intake forms: %w", err)
	}
	c := &Catalog{forms: map[string]Form{}}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		var f Form
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		key := strings.TrimSuffix(e.Name(), ".yaml")
		if f.Key != key {
			return nil, fmt.Errorf("intake form %s: key %q does not match file name", e.Name(), f.Key)
		}
		c.forms[key] = f
	}
	return c, nil
}

// ByService returns nil, false for unknown services.
func (c *Catalog) ByService(key string) (*Form, bool) {
	f, ok := c.forms[key]
	if !ok {
		return nil, false
	}
	return &f, true
}

func (c *Catalog) All() map[string]Form {
	out := make(map[string]Form, len(c.forms))
	for k, v := range c.forms {
		out[k] = v
	}
	return out
}

func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.forms))
	for k := range c.forms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
