// Package annotation holds the categories and confirmed annotations of one
// annotation session.
package annotation

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/lehigh-university-libraries/sroie/pkg/region"
)

var (
	ErrCategoryExists  = errors.New("category already exists")
	ErrEmptyName       = errors.New("category name is empty")
	ErrUnknownCategory = errors.New("unknown category")
)

// DefaultCategories seed every new store
var DefaultCategories = []string{"Company", "Date", "Total", "Address"}

// Annotation is a confirmed text with the box it was read from
type Annotation struct {
	Box  region.BoundingBox
	Text string
}

// Coords returns the box as two corner points
func (a Annotation) Coords() [2]region.Point {
	return a.Box.Corners()
}

// MarshalJSON renders coords as two [x, y] pairs
func (a Annotation) MarshalJSON() ([]byte, error) {
	c := a.Coords()
	return json.Marshal(struct {
		Coords [2][2]int `json:"coords"`
		Text   string    `json:"text"`
	}{
		Coords: [2][2]int{{c[0].X, c[0].Y}, {c[1].X, c[1].Y}},
		Text:   a.Text,
	})
}

// Store maps category names to their annotations in insertion order.
// Categories are never removed and annotations are never edited.
// A Store is not safe for concurrent use.
type Store struct {
	categories  []string
	annotations map[string][]Annotation
}

// NewStore creates a store with the given categories, or DefaultCategories
// when none are given. Blank and repeated names are skipped.
func NewStore(categories ...string) *Store {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	s := &Store{
		annotations: make(map[string][]Annotation, len(categories)),
	}
	for _, c := range categories {
		_ = s.AddCategory(c)
	}
	return s
}

// AddCategory appends a new category with no annotations.
// The name is trimmed; uniqueness is an exact, case-sensitive match.
func (s *Store) AddCategory(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if _, exists := s.annotations[name]; exists {
		return fmt.Errorf("%w: %s", ErrCategoryExists, name)
	}
	s.categories = append(s.categories, name)
	s.annotations[name] = []Annotation{}
	return nil
}

// AddAnnotation appends text read from box to category.
// Identical annotations may be added repeatedly.
func (s *Store) AddAnnotation(category string, box region.BoundingBox, text string) error {
	list, exists := s.annotations[category]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	s.annotations[category] = append(list, Annotation{Box: box, Text: text})
	return nil
}

// Categories returns the category names in creation order
func (s *Store) Categories() []string {
	return slices.Clone(s.categories)
}

// HasCategory reports whether name is a category
func (s *Store) HasCategory(name string) bool {
	_, exists := s.annotations[name]
	return exists
}

// Annotations returns the annotations of category in insertion order.
// Unknown categories yield an empty slice.
func (s *Store) Annotations(category string) []Annotation {
	list, exists := s.annotations[category]
	if !exists {
		return []Annotation{}
	}
	return slices.Clone(list)
}

// Len returns the total number of annotations
func (s *Store) Len() int {
	n := 0
	for _, list := range s.annotations {
		n += len(list)
	}
	return n
}
