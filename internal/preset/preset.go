// Package preset implements the template engine, variable collection, and
// context-collection modes a preset uses to build a prompt (spec §4.8,
// component C10).
package preset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kyco/termai/internal/coreerr"
	"github.com/kyco/termai/internal/jsonutil"
	"github.com/kyco/termai/internal/paths"
)

// Preset is a self-describing document: name, description, category,
// template body, declared variables, and context-collection config.
type Preset struct {
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Category     string              `json:"category"`
	TemplateBody string              `json:"template_body"`
	Variables    map[string]Variable `json:"variables"`
	Builtin      bool                `json:"-"`
}

// fileName is the on-disk name a user preset is stored under in presets/.
func fileName(name string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	return safe + ".json"
}

// Manager loads, saves, lists, and deletes user presets, and merges them
// with the fixed built-in catalog.
type Manager struct{}

// NewManager returns a Manager backed by the user's presets directory.
func NewManager() *Manager {
	return &Manager{}
}

// List returns every preset, built-in catalog entries first, sorted by
// name within each group.
func (m *Manager) List() ([]Preset, error) {
	builtins := append([]Preset(nil), Builtins()...)
	sort.Slice(builtins, func(i, j int) bool { return builtins[i].Name < builtins[j].Name })

	user, err := m.listUser()
	if err != nil {
		return nil, err
	}
	sort.Slice(user, func(i, j int) bool { return user[i].Name < user[j].Name })

	return append(builtins, user...), nil
}

func (m *Manager) listUser() ([]Preset, error) {
	dir, err := paths.PresetsDir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindIntegrityError, "read presets directory", err)
	}

	var out []Preset
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, coreerr.Wrap(coreerr.KindIntegrityError, "read preset file "+e.Name(), err)
		}
		var p Preset
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, coreerr.Wrap(coreerr.KindIntegrityError, "parse preset file "+e.Name(), err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Get resolves a preset by name, checking built-ins first.
func (m *Manager) Get(name string) (Preset, error) {
	for _, b := range Builtins() {
		if b.Name == name {
			return b, nil
		}
	}
	dir, err := paths.PresetsDir()
	if err != nil {
		return Preset{}, err
	}
	data, err := os.ReadFile(filepath.Join(dir, fileName(name)))
	if os.IsNotExist(err) {
		return Preset{}, coreerr.New(coreerr.KindNotFound, "no preset named \""+name+"\"",
			"run \"preset list\" to see available presets")
	}
	if err != nil {
		return Preset{}, coreerr.Wrap(coreerr.KindIntegrityError, "read preset file", err)
	}
	var p Preset
	if err := json.Unmarshal(data, &p); err != nil {
		return Preset{}, coreerr.Wrap(coreerr.KindIntegrityError, "parse preset file", err)
	}
	return p, nil
}

// Save writes a user preset, overwriting any existing file of the same
// name. Built-in presets cannot be saved over; use Clone first.
func (m *Manager) Save(p Preset) error {
	for _, b := range Builtins() {
		if b.Name == p.Name {
			return coreerr.New(coreerr.KindConflict, "\""+p.Name+"\" is a built-in preset and is immutable",
				"clone it first: preset create --from "+p.Name)
		}
	}
	dir, err := paths.PresetsDir()
	if err != nil {
		return err
	}
	p.Builtin = false
	data, err := jsonutil.MarshalIndentWithNewline(p, "", "  ")
	if err != nil {
		return coreerr.Wrap(coreerr.KindIntegrityError, "marshal preset", err)
	}
	target := filepath.Join(dir, fileName(p.Name))
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return coreerr.Wrap(coreerr.KindIntegrityError, "write preset temp file", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return coreerr.Wrap(coreerr.KindIntegrityError, "rename preset into place", err)
	}
	return nil
}

// Delete removes a user preset. Built-in presets cannot be deleted.
func (m *Manager) Delete(name string) error {
	for _, b := range Builtins() {
		if b.Name == name {
			return coreerr.New(coreerr.KindConflict, "\""+name+"\" is a built-in preset and cannot be deleted")
		}
	}
	dir, err := paths.PresetsDir()
	if err != nil {
		return err
	}
	target := filepath.Join(dir, fileName(name))
	if err := os.Remove(target); err != nil {
		if os.IsNotExist(err) {
			return coreerr.New(coreerr.KindNotFound, "no preset named \""+name+"\"")
		}
		return coreerr.Wrap(coreerr.KindIntegrityError, "delete preset file", err)
	}
	return nil
}

// Clone copies an existing preset (built-in or user) to a new user-editable
// preset named "<name> (Custom)" per spec §4.8, without overwriting the
// source.
func (m *Manager) Clone(name string) (Preset, error) {
	src, err := m.Get(name)
	if err != nil {
		return Preset{}, err
	}
	clone := src
	clone.Name = src.Name + " (Custom)"
	clone.Builtin = false
	if err := m.Save(clone); err != nil {
		return Preset{}, err
	}
	return clone, nil
}

// Search filters List's output by substring match against name,
// description, or category (case-insensitive), and optionally template body.
func (m *Manager) Search(query string, includeBody bool) ([]Preset, error) {
	all, err := m.List()
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var out []Preset
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q) ||
			strings.Contains(strings.ToLower(p.Category), q) ||
			(includeBody && strings.Contains(strings.ToLower(p.TemplateBody), q)) {
			out = append(out, p)
		}
	}
	return out, nil
}
