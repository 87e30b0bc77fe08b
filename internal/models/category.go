// internal/models/category.go
package models

import (
	"fmt"
	"strings"
)

// Category is one of the fixed editorial buckets. The set and its order are
// versioned: classification tie-breaks, storage ordering and backfill all
// consume Categories in declaration order, so changing the list is a
// coordinated migration across classifier, storage and subscriber preferences.
type Category string

const (
	CategoryDev      Category = "dev"
	CategoryDesign   Category = "design"
	CategoryProduct  Category = "product"
	CategoryOps      Category = "ops"
	CategoryCreators Category = "creators"
	CategoryWildcard Category = "wildcard"
)

// Categories lists every category in canonical order. First-declared wins
// score ties; CategoryWildcard is the catch-all for items scoring zero
// everywhere.
var Categories = []Category{
	CategoryDev,
	CategoryDesign,
	CategoryProduct,
	CategoryOps,
	CategoryCreators,
	CategoryWildcard,
}

var categoryLabels = map[Category]string{
	CategoryDev:      "Dev Discoveries",
	CategoryDesign:   "Designers Drawer",
	CategoryProduct:  "Product Picks",
	CategoryOps:      "Ops Oasis",
	CategoryCreators: "Creator's Corner",
	CategoryWildcard: "Wildcard Wonders",
}

// Label returns the human-facing name used in generated copy.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Valid reports whether c is a member of the current enumeration.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// ParseCategory normalizes and validates a category slug.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// ParseCategoryList parses a comma-separated preference string as stored on
// subscriber rows, dropping empty segments.
func ParseCategoryList(s string) ([]Category, error) {
	var out []Category
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		c, err := ParseCategory(part)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// JoinCategories renders categories back to the stored comma-separated form.
func JoinCategories(cats []Category) string {
	parts := make([]string, 0, len(cats))
	for _, c := range cats {
		parts = append(parts, string(c))
	}
	return strings.Join(parts, ",")
}
