package format_v1

import (
	"fmt"

	dxmerrors "github.com/gibbed/Gibbed.DXM/pkg/texentry/errors"
)

// FieldKind classifies what value a field receives.
type FieldKind string

const (
	KindIdentifier    FieldKind = "identifier"     // 3-digit ASCII identifier
	KindNameDigest    FieldKind = "name_digest"    // digest of the output base name
	KindContentDigest FieldKind = "content_digest" // digest of a segment range
	KindIndexDigest   FieldKind = "index_digest"   // digest of the index range
	KindSegmentOffset FieldKind = "segment_offset" // uint32 LE absolute offset
	KindSegmentLength FieldKind = "segment_length" // uint32 LE length
)

// IdentifierWidth is the rendered width of an identifier.
const IdentifierWidth = 3

func (k FieldKind) width() int {
	switch k {
	case KindIdentifier:
		return IdentifierWidth
	case KindSegmentOffset, KindSegmentLength:
		return 4
	default:
		// digest widths are checked against their algorithm
		return 0
	}
}

func (k FieldKind) valid() bool {
	switch k {
	case KindIdentifier, KindNameDigest, KindContentDigest, KindIndexDigest,
		KindSegmentOffset, KindSegmentLength:
		return true
	}
	return false
}

// PatchEntry declares where one copy of a field's value lands.
type PatchEntry struct {
	Field   string
	Kind    FieldKind
	Source  string // digest name or segment name, depending on Kind
	Segment SegmentName
	Offset  int // relative to the segment start
	Length  int
}

// End returns the exclusive end offset within the segment.
func (e PatchEntry) End() int { return e.Offset + e.Length }

func (e PatchEntry) String() string {
	return fmt.Sprintf("%s@%s+%d[%d]", e.Field, e.Segment, e.Offset, e.Length)
}

// PatchTable maps semantic field names to their byte locations. A field may
// have several entries when the same value is stored more than once.
type PatchTable struct {
	entries []PatchEntry
	fields  []string
	byField map[string][]PatchEntry
}

func newPatchTable(specs []fieldSpec) (*PatchTable, error) {
	t := &PatchTable{byField: make(map[string][]PatchEntry)}
	for _, f := range specs {
		if !f.Kind.valid() {
			return nil, fmt.Errorf("field %q has unknown kind %q", f.Name, f.Kind)
		}
		if _, dup := t.byField[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		if len(f.At) == 0 {
			return nil, fmt.Errorf("field %q has no locations", f.Name)
		}
		t.fields = append(t.fields, f.Name)
		for _, at := range f.At {
			e := PatchEntry{
				Field:   f.Name,
				Kind:    f.Kind,
				Source:  f.Source,
				Segment: at.Segment,
				Offset:  at.Offset,
				Length:  at.Length,
			}
			t.entries = append(t.entries, e)
			t.byField[f.Name] = append(t.byField[f.Name], e)
		}
	}
	return t, nil
}

// Field returns every entry of a field.
func (t *PatchTable) Field(name string) ([]PatchEntry, error) {
	entries, ok := t.byField[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, dxmerrors.ErrUnknownField)
	}
	out := make([]PatchEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// Kind returns every entry of the given kind, in declaration order.
func (t *PatchTable) Kind(kind FieldKind) []PatchEntry {
	var out []PatchEntry
	for _, e := range t.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Fields returns field names in declaration order.
func (t *PatchTable) Fields() []string {
	out := make([]string, len(t.fields))
	copy(out, t.fields)
	return out
}

// Entries returns all entries in declaration order.
func (t *PatchTable) Entries() []PatchEntry {
	out := make([]PatchEntry, len(t.entries))
	copy(out, t.entries)
	return out
}
