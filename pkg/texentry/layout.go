package texentry

import (
	"encoding/binary"
	"fmt"

	dxmerrors "github.com/gibbed/Gibbed.DXM/pkg/texentry/errors"
	"github.com/gibbed/Gibbed.DXM/pkg/texentry/format_v1"
)

// Range is a half-open absolute byte range [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns the number of bytes in the range.
func (r Range) Len() int { return r.End - r.Start }

// Overlaps reports whether two ranges share at least one byte.
func (r Range) Overlaps(o Range) bool {
	return r.Start < o.End && o.Start < r.End
}

func (r Range) String() string {
	return fmt.Sprintf("[0x%X,0x%X)", r.Start, r.End)
}

// Segment is a placed region of the output buffer.
type Segment struct {
	Name   format_v1.SegmentName
	Offset int
	Length int

	// Overlaid is set on a segment whose bytes another segment writes over.
	Overlaid bool
}

// Range returns the absolute range the segment occupies.
func (s Segment) Range() Range {
	return Range{Start: s.Offset, End: s.Offset + s.Length}
}

// Layout places every segment of a schema for a given payload length.
type Layout struct {
	segments []Segment
	byName   map[format_v1.SegmentName]int
	size     int
}

// NewLayout places segments in schema order. A segment that overlays another
// starts at that segment's offset and extends the region to the larger of the
// two lengths; the next segment follows the end of that region.
func NewLayout(schema *format_v1.Schema, payloadLen int) (*Layout, error) {
	l := &Layout{byName: make(map[format_v1.SegmentName]int)}

	cursor := 0
	for _, spec := range schema.Segments {
		length := spec.Length
		if spec.File == "" {
			length = payloadLen
		}

		seg := Segment{Name: spec.Name, Offset: cursor, Length: length}
		if spec.Overlays != "" {
			idx, ok := l.byName[spec.Overlays]
			if !ok {
				return nil, fmt.Errorf("%s overlays %s: %w", spec.Name, spec.Overlays, dxmerrors.ErrUnknownSegment)
			}
			base := &l.segments[idx]
			base.Overlaid = true
			seg.Offset = base.Offset
			seg.Length = max(length, base.Length)
			cursor = max(base.Offset+base.Length, seg.Offset+seg.Length)
		} else {
			cursor += length
		}

		l.byName[spec.Name] = len(l.segments)
		l.segments = append(l.segments, seg)
	}
	l.size = cursor
	return l, nil
}

// Size returns the total output length.
func (l *Layout) Size() int { return l.size }

// Segments returns all placed segments in layout order.
func (l *Layout) Segments() []Segment {
	out := make([]Segment, len(l.segments))
	copy(out, l.segments)
	return out
}

// Segment returns a placed segment by name.
func (l *Layout) Segment(name format_v1.SegmentName) (Segment, error) {
	idx, ok := l.byName[name]
	if !ok {
		return Segment{}, fmt.Errorf("%s: %w", name, dxmerrors.ErrUnknownSegment)
	}
	return l.segments[idx], nil
}

// Resolve converts a segment-relative patch entry into an absolute range,
// checking it lies inside both the segment and the buffer.
func (l *Layout) Resolve(e format_v1.PatchEntry) (Range, error) {
	seg, err := l.Segment(e.Segment)
	if err != nil {
		return Range{}, fmt.Errorf("field %s: %w", e.Field, err)
	}
	return l.resolveIn(seg, e.Offset, e.Length, e.String())
}

// ResolveSpan converts a segment-relative [start, end) into an absolute range.
func (l *Layout) ResolveSpan(name format_v1.SegmentName, start, end int) (Range, error) {
	seg, err := l.Segment(name)
	if err != nil {
		return Range{}, err
	}
	return l.resolveIn(seg, start, end-start, fmt.Sprintf("%s[%d:%d]", name, start, end))
}

func (l *Layout) resolveIn(seg Segment, offset, length int, what string) (Range, error) {
	if offset < 0 || length <= 0 || offset+length > seg.Length {
		return Range{}, fmt.Errorf("%s outside segment %s (len %d): %w",
			what, seg.Name, seg.Length, dxmerrors.ErrFieldOutOfBounds)
	}
	r := Range{Start: seg.Offset + offset, End: seg.Offset + offset + length}
	if r.End > l.size {
		return Range{}, fmt.Errorf("%s %s past end of buffer (%d): %w",
			what, r, l.size, dxmerrors.ErrFieldOutOfBounds)
	}
	return r, nil
}

// OutputBuffer is the in-memory entry being assembled. Its length never
// changes after assembly; all writes go through bounds-checked ranges.
type OutputBuffer struct {
	data   []byte
	layout *Layout
}

// Bytes returns the underlying buffer.
func (b *OutputBuffer) Bytes() []byte { return b.data }

// Layout returns the segment placement of the buffer.
func (b *OutputBuffer) Layout() *Layout { return b.layout }

// Len returns the buffer length.
func (b *OutputBuffer) Len() int { return len(b.data) }

// Slice returns the bytes of an absolute range.
func (b *OutputBuffer) Slice(r Range) ([]byte, error) {
	if r.Start < 0 || r.End > len(b.data) || r.End < r.Start {
		return nil, fmt.Errorf("range %s outside buffer (%d): %w", r, len(b.data), dxmerrors.ErrFieldOutOfBounds)
	}
	return b.data[r.Start:r.End], nil
}

// Read returns the current bytes of a patch entry.
func (b *OutputBuffer) Read(e format_v1.PatchEntry) ([]byte, error) {
	r, err := b.layout.Resolve(e)
	if err != nil {
		return nil, err
	}
	return b.data[r.Start:r.End], nil
}

// Write stores value at a patch entry. value must match the entry length.
func (b *OutputBuffer) Write(e format_v1.PatchEntry, value []byte) error {
	r, err := b.layout.Resolve(e)
	if err != nil {
		return err
	}
	if len(value) != r.Len() {
		return fmt.Errorf("%s expects %d bytes, got %d: %w", e, r.Len(), len(value), dxmerrors.ErrInvariantViolation)
	}
	copy(b.data[r.Start:r.End], value)
	return nil
}

// PutUint32 stores a little-endian uint32 at a 4-byte patch entry.
func (b *OutputBuffer) PutUint32(e format_v1.PatchEntry, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return b.Write(e, buf[:])
}

// Uint32 reads a little-endian uint32 from a 4-byte patch entry.
func (b *OutputBuffer) Uint32(e format_v1.PatchEntry) (uint32, error) {
	v, err := b.Read(e)
	if err != nil {
		return 0, err
	}
	if len(v) != 4 {
		return 0, fmt.Errorf("%s is not a uint32 field: %w", e, dxmerrors.ErrInvariantViolation)
	}
	return binary.LittleEndian.Uint32(v), nil
}
