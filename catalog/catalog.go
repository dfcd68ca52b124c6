// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package catalog holds the read-only item reference data joined into
// ranking entries.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/PatchyVideo/thvote-be/models"
)

// Item is the descriptive metadata of one character or music.
type Item struct {
	Name            string `yaml:"name"`
	NameJpn         string `yaml:"name_jpn"`
	Type            string `yaml:"type"`
	Origin          string `yaml:"origin"`
	FirstAppearance string `yaml:"first_appearance"`
}

type file struct {
	Chars  []Item `yaml:"chars"`
	Musics []Item `yaml:"musics"`
}

// Catalog indexes items by section and name. The zero value and a nil
// *Catalog are empty catalogs.
type Catalog struct {
	order map[string][]string
	items map[string]map[string]Item
}

// Load reads a YAML catalog. An empty path yields an empty catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return &Catalog{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	c := &Catalog{}
	if err := c.add(models.SectionChars, f.Chars); err != nil {
		return nil, err
	}
	if err := c.add(models.SectionMusics, f.Musics); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) add(section string, items []Item) error {
	if c.items == nil {
		c.items = make(map[string]map[string]Item)
		c.order = make(map[string][]string)
	}
	byName := make(map[string]Item, len(items))
	for _, it := range items {
		if it.Name == "" {
			return fmt.Errorf("catalog %s: item without name", section)
		}
		if _, dup := byName[it.Name]; dup {
			return fmt.Errorf("catalog %s: duplicate item %q", section, it.Name)
		}
		byName[it.Name] = it
		c.order[section] = append(c.order[section], it.Name)
	}
	c.items[section] = byName
	return nil
}

// Lookup returns the metadata of name. Fields missing from the catalog,
// or every field of an unknown item, read "unknown".
func (c *Catalog) Lookup(section, name string) (Item, bool) {
	var it Item
	ok := false
	if c != nil {
		it, ok = c.items[section][name]
	}
	if !ok {
		it = Item{Name: name}
	}
	fill := func(s *string) {
		if *s == "" {
			*s = models.Unknown
		}
	}
	fill(&it.NameJpn)
	fill(&it.Type)
	fill(&it.Origin)
	fill(&it.FirstAppearance)
	return it, ok
}

// Names lists the items of a section in file order.
func (c *Catalog) Names(section string) []string {
	if c == nil {
		return nil
	}
	return c.order[section]
}

func (c *Catalog) Len(section string) int {
	return len(c.Names(section))
}
