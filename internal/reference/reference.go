// Package reference implements schema-scoped path references over nested maps.
//
// A reference is a string made of a root literal, a separator and one or more
// segments, e.g. "$lmctl:/contains:/db:/descriptor_name". References are
// resolved against a nested map[string]any, one segment per level.
package reference

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotResolvable indicates a segment was not found in the map.
	ErrNotResolvable = errors.New("not resolvable")

	// ErrBadReference indicates a reference stepped through a value that is not a map.
	ErrBadReference = errors.New("bad reference")

	// ErrNoSegments indicates a reference was built without any segments.
	ErrNoSegments = errors.New("cannot build a reference with no parts")

	// ErrNotReference indicates a string does not carry the schema prefix.
	ErrNotReference = errors.New("not a reference")
)

// Schema is the root literal and separator that frame a reference.
type Schema struct {
	Root      string
	Separator string
}

// Default is the schema used in project sources.
var Default = Schema{Root: "$lmctl", Separator: ":/"}

func (s Schema) prefix() string {
	return s.Root + s.Separator
}

// IsReference reports whether value starts with the schema prefix and has at
// least one character after it.
func (s Schema) IsReference(value string) bool {
	p := s.prefix()
	return strings.HasPrefix(value, p) && len(value) > len(p)
}

// Breakdown returns the ordered segments of a reference. Empty segments are
// kept, so "a:/:/b" yields ["a", "", "b"].
func (s Schema) Breakdown(ref string) ([]string, error) {
	if !s.IsReference(ref) {
		return nil, fmt.Errorf("%w: %q", ErrNotReference, ref)
	}
	remainder := ref[len(s.prefix()):]

	var segments []string
	for {
		idx := strings.Index(remainder, s.Separator)
		if idx < 0 {
			segments = append(segments, remainder)
			return segments, nil
		}
		segments = append(segments, remainder[:idx])
		remainder = remainder[idx+len(s.Separator):]
	}
}

// Builder accumulates segments of a reference.
type Builder struct {
	schema   Schema
	segments []string
}

// NewBuilder returns an empty builder for the schema.
func (s Schema) NewBuilder() *Builder {
	return &Builder{schema: s}
}

// Add appends a segment.
func (b *Builder) Add(segment string) *Builder {
	b.segments = append(b.segments, segment)
	return b
}

// AddBefore prepends a segment.
func (b *Builder) AddBefore(segment string) *Builder {
	b.segments = append([]string{segment}, b.segments...)
	return b
}

// Segments returns a copy of the segments added so far.
func (b *Builder) Segments() []string {
	return append([]string(nil), b.segments...)
}

// Get joins the segments into a reference string.
func (b *Builder) Get() (string, error) {
	if len(b.segments) == 0 {
		return "", ErrNoSegments
	}
	return b.schema.prefix() + strings.Join(b.segments, b.schema.Separator), nil
}

// ResolveError describes where resolution of a reference stopped.
type ResolveError struct {
	Reference string
	Segment   string
	// Previous is the segment whose value could not be stepped through.
	// Only set for ErrBadReference.
	Previous string
	Kind     error
}

func (e *ResolveError) Error() string {
	if errors.Is(e.Kind, ErrBadReference) {
		return fmt.Sprintf("Reference has invalid step from '%s' to '%s': %s", e.Previous, e.Segment, e.Reference)
	}
	return fmt.Sprintf("Cannot find '%s' in reference: %s", e.Segment, e.Reference)
}

func (e *ResolveError) Unwrap() error {
	return e.Kind
}

// Resolve walks the segments of ref through values and returns the value at the
// final segment. The final value may be of any type.
func (s Schema) Resolve(values map[string]any, ref string) (any, error) {
	segments, err := s.Breakdown(ref)
	if err != nil {
		return nil, err
	}

	current := values
	for i, segment := range segments {
		value, ok := current[segment]
		if !ok {
			return nil, &ResolveError{Reference: ref, Segment: segment, Kind: ErrNotResolvable}
		}
		if i == len(segments)-1 {
			return value, nil
		}
		next, ok := value.(map[string]any)
		if !ok {
			return nil, &ResolveError{
				Reference: ref,
				Segment:   segments[i+1],
				Previous:  segment,
				Kind:      ErrBadReference,
			}
		}
		current = next
	}
	// Breakdown never returns zero segments for a valid reference.
	return nil, &ResolveError{Reference: ref, Kind: ErrNotResolvable}
}
