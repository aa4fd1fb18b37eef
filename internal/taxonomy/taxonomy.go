// Package taxonomy loads category trees from YAML files and applies them to
// the catalog.
//
// A taxonomy file is a nested list:
//
//	- name: Electronics
//	  children:
//	    - name: Phones & Tablets
//	      slug: phones
//	      display_order: 1
package taxonomy

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tradepost/catalog-server/internal/category"
	"gopkg.in/yaml.v3"
)

// Load reads a taxonomy file.
func Load(path string) ([]category.Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open taxonomy: %w", err)
	}
	defer f.Close()

	seeds, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seeds, nil
}

// Parse decodes a taxonomy document. Unknown keys and unnamed nodes are
// rejected. An empty document is an empty taxonomy.
func Parse(r io.Reader) ([]category.Seed, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var seeds []category.Seed
	if err := dec.Decode(&seeds); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode taxonomy: %w", err)
	}

	if err := check(seeds, ""); err != nil {
		return nil, err
	}
	return seeds, nil
}

func check(seeds []category.Seed, parent string) error {
	for i, s := range seeds {
		where := fmt.Sprintf("%s[%d]", parent, i)
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("taxonomy node %s: name is required", where)
		}
		if s.Slug != "" && !category.IsValidSlug(s.Slug) {
			return fmt.Errorf("taxonomy node %s (%s): invalid slug %q", where, s.Name, s.Slug)
		}
		if err := check(s.Children, where+".children"); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of nodes in seeds, children included.
func Count(seeds []category.Seed) int {
	n := 0
	for _, s := range seeds {
		n += 1 + Count(s.Children)
	}
	return n
}
