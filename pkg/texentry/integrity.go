package texentry

import (
	"encoding/hex"
	"fmt"

	dxmerrors "github.com/gibbed/Gibbed.DXM/pkg/texentry/errors"
	"github.com/gibbed/Gibbed.DXM/pkg/texentry/format_v1"
)

// Digests holds computed digest values keyed by digest name.
type Digests map[string][]byte

// Hex returns a digest as lowercase hex, or "" when it was not computed.
func (d Digests) Hex(name string) string {
	v, ok := d[name]
	if !ok {
		return ""
	}
	return hex.EncodeToString(v)
}

// NewIntegrityPlan builds the patch plan for one entry: name digest,
// identifier, layout fields, content digests, their stores, and finally the
// index digest. Digest steps depend on every step that writes into the range
// they hash, so the index digest is computed only after everything it covers
// has been stored. The returned Digests map is filled in as the plan runs.
func NewIntegrityPlan(schema *format_v1.Schema, layout *Layout, id Identifier, entryName string) (*Plan, Digests, error) {
	values := Digests{}
	b := &planBuilder{schema: schema, layout: layout, values: values}

	var (
		digestSteps []Step
		ownStores   []Step
		otherStores []Step
		steps       []Step
	)

	for _, d := range schema.Digests {
		if !d.HashesFilename() {
			continue
		}
		name := []byte(entryName)
		algo := d.ChecksumAlgorithm()
		digestName := d.Name
		steps = append(steps, Step{
			Name: digestStepName(d.Name),
			Run: func(*OutputBuffer) error {
				values[digestName] = format_v1.Sum(algo, name)
				return nil
			},
		})
		stores, err := b.storeSteps(d)
		if err != nil {
			return nil, nil, err
		}
		steps = append(steps, stores...)
	}

	idStep, err := b.identifierStep(id)
	if err != nil {
		return nil, nil, err
	}
	layoutStep, err := b.layoutStep()
	if err != nil {
		return nil, nil, err
	}
	steps = append(steps, idStep, layoutStep)

	for _, d := range schema.Digests {
		if d.HashesFilename() {
			continue
		}
		step, err := b.digestStep(d)
		if err != nil {
			return nil, nil, err
		}
		digestSteps = append(digestSteps, step)

		stores, err := b.storeSteps(d)
		if err != nil {
			return nil, nil, err
		}
		for _, s := range stores {
			if s.Name == storeStepName(d.Name, d.Segment) {
				ownStores = append(ownStores, s)
			} else {
				otherStores = append(otherStores, s)
			}
		}
	}
	steps = append(steps, digestSteps...)
	steps = append(steps, ownStores...)
	steps = append(steps, otherStores...)

	linkReaders(steps)

	plan, err := NewPlan(steps...)
	if err != nil {
		return nil, nil, err
	}
	return plan, values, nil
}

func digestStepName(digest string) string {
	return "digest:" + digest
}

func storeStepName(digest string, seg format_v1.SegmentName) string {
	return fmt.Sprintf("store:%s@%s", digest, seg)
}

type planBuilder struct {
	schema *format_v1.Schema
	layout *Layout
	values Digests
}

func (b *planBuilder) resolve(entries []format_v1.PatchEntry) ([]Range, error) {
	out := make([]Range, 0, len(entries))
	for _, e := range entries {
		r, err := b.layout.Resolve(e)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (b *planBuilder) identifierStep(id Identifier) (Step, error) {
	writes, err := b.resolve(b.schema.Table.Kind(format_v1.KindIdentifier))
	if err != nil {
		return Step{}, err
	}
	table := b.schema.Table
	return Step{
		Name:   "identifier",
		Writes: writes,
		Run: func(buf *OutputBuffer) error {
			return PatchIdentifier(buf, table, id)
		},
	}, nil
}

func (b *planBuilder) layoutStep() (Step, error) {
	entries := append(b.schema.Table.Kind(format_v1.KindSegmentOffset),
		b.schema.Table.Kind(format_v1.KindSegmentLength)...)
	writes, err := b.resolve(entries)
	if err != nil {
		return Step{}, err
	}
	layout := b.layout
	return Step{
		Name:   "layout",
		Writes: writes,
		Run: func(buf *OutputBuffer) error {
			for _, e := range entries {
				v, err := layoutValue(layout, e)
				if err != nil {
					return err
				}
				if err := buf.PutUint32(e, v); err != nil {
					return err
				}
			}
			return nil
		},
	}, nil
}

// layoutValue returns the value a segment offset or length field must hold.
func layoutValue(layout *Layout, e format_v1.PatchEntry) (uint32, error) {
	seg, err := layout.Segment(format_v1.SegmentName(e.Source))
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", e.Field, err)
	}
	switch e.Kind {
	case format_v1.KindSegmentOffset:
		return uint32(seg.Offset), nil
	case format_v1.KindSegmentLength:
		return uint32(seg.Length), nil
	default:
		return 0, fmt.Errorf("field %s is not a layout field: %w", e.Field, dxmerrors.ErrInvariantViolation)
	}
}

func (b *planBuilder) digestStep(d format_v1.DigestSpec) (Step, error) {
	r, err := b.layout.ResolveSpan(d.Segment, d.Start, d.End)
	if err != nil {
		return Step{}, fmt.Errorf("digest %s: %w", d.Name, err)
	}
	values := b.values
	algo := d.ChecksumAlgorithm()
	name := d.Name
	return Step{
		Name:  digestStepName(d.Name),
		Reads: []Range{r},
		Run: func(buf *OutputBuffer) error {
			data, err := buf.Slice(r)
			if err != nil {
				return err
			}
			values[name] = format_v1.Sum(algo, data)
			return nil
		},
	}, nil
}

// storeSteps returns one step per segment the digest's field lands in, in
// first-appearance order.
func (b *planBuilder) storeSteps(d format_v1.DigestSpec) ([]Step, error) {
	entries, err := b.schema.Table.Field(d.Field)
	if err != nil {
		return nil, fmt.Errorf("digest %s: %w", d.Name, err)
	}

	var order []format_v1.SegmentName
	bySegment := map[format_v1.SegmentName][]format_v1.PatchEntry{}
	for _, e := range entries {
		if _, seen := bySegment[e.Segment]; !seen {
			order = append(order, e.Segment)
		}
		bySegment[e.Segment] = append(bySegment[e.Segment], e)
	}

	values := b.values
	digest := d.Name
	steps := make([]Step, 0, len(order))
	for _, seg := range order {
		group := bySegment[seg]
		writes, err := b.resolve(group)
		if err != nil {
			return nil, err
		}
		steps = append(steps, Step{
			Name:      storeStepName(d.Name, seg),
			DependsOn: []string{digestStepName(d.Name)},
			Writes:    writes,
			Run: func(buf *OutputBuffer) error {
				v, ok := values[digest]
				if !ok {
					return fmt.Errorf("digest %s not computed: %w", digest, dxmerrors.ErrPlanOrder)
				}
				for _, e := range group {
					if err := buf.Write(e, v); err != nil {
						return err
					}
				}
				return nil
			},
		})
	}
	return steps, nil
}

// linkReaders makes every step that reads a range depend on every other step
// that writes into it.
func linkReaders(steps []Step) {
	for i := range steps {
		if len(steps[i].Reads) == 0 {
			continue
		}
		for j := range steps {
			if i == j {
				continue
			}
			if writesInto(steps[j].Writes, steps[i].Reads) {
				steps[i].DependsOn = append(steps[i].DependsOn, steps[j].Name)
			}
		}
	}
}

func writesInto(writes, reads []Range) bool {
	for _, w := range writes {
		for _, r := range reads {
			if w.Overlaps(r) {
				return true
			}
		}
	}
	return false
}
