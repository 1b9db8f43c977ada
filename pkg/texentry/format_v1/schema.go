// Package format_v1 describes the one supported texture entry layout: the
// four template blobs, the segment order, the PatchTable mapping semantic
// fields to byte locations, and the digest coverage ranges.
//
// All of it is loaded from embedded assets (assets/schema.yaml plus the
// template .bin files), so layout knowledge lives in one reviewable place
// rather than in offsets scattered through the pipeline.
package format_v1

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sync"

	"gopkg.in/yaml.v3"

	dxmerrors "github.com/gibbed/Gibbed.DXM/pkg/texentry/errors"
)

// FormatVersion is the only schema version this package accepts.
const FormatVersion = 1

//go:embed assets/schema.yaml assets/*.bin
var assets embed.FS

// SegmentName names a region of the output buffer.
type SegmentName string

const (
	AssetHeader SegmentName = "AssetHeader"
	DataHeader  SegmentName = "DataHeader"
	Payload     SegmentName = "Payload"
	ExportBody  SegmentName = "ExportBody"
	Index       SegmentName = "Index"
)

// MipSpec fixes the texture configuration the payload size was derived from.
type MipSpec struct {
	BaseSize    int    `yaml:"base_size"`
	Levels      int    `yaml:"levels"`
	Format      string `yaml:"format"`
	PayloadSize int    `yaml:"payload_size"`
}

// SegmentSpec declares one segment. File is empty for the payload, which is
// produced at build time. Overlays names an earlier segment whose start
// offset this segment shares.
type SegmentSpec struct {
	Name      SegmentName `yaml:"name"`
	File      string      `yaml:"file,omitempty"`
	Length    int         `yaml:"length"`
	Checksum  string      `yaml:"checksum,omitempty"`
	SubHeader int         `yaml:"sub_header,omitempty"`
	Overlays  SegmentName `yaml:"overlays,omitempty"`
}

// DigestSpec declares one digest: its algorithm, its input, and the field it
// is written to. Input "filename" means the output base name; otherwise the
// input is [Start, End) of Segment.
type DigestSpec struct {
	Name      string      `yaml:"name"`
	Algorithm string      `yaml:"algorithm"`
	Input     string      `yaml:"input,omitempty"`
	Segment   SegmentName `yaml:"segment,omitempty"`
	Start     int         `yaml:"start,omitempty"`
	End       int         `yaml:"end,omitempty"`
	Field     string      `yaml:"field"`

	algorithm ChecksumAlgorithm
}

// InputFilename is the DigestSpec.Input value for the filename digest.
const InputFilename = "filename"

// HashesFilename reports whether the digest covers the output name instead of
// buffer bytes.
func (d DigestSpec) HashesFilename() bool {
	return d.Input == InputFilename
}

// ChecksumAlgorithm returns the parsed algorithm.
func (d DigestSpec) ChecksumAlgorithm() ChecksumAlgorithm {
	return d.algorithm
}

type location struct {
	Segment SegmentName `yaml:"segment"`
	Offset  int         `yaml:"offset"`
	Length  int         `yaml:"length"`
}

type fieldSpec struct {
	Name   string     `yaml:"name"`
	Kind   FieldKind  `yaml:"kind"`
	Source string     `yaml:"source,omitempty"`
	At     []location `yaml:"at"`
}

type document struct {
	Version  int           `yaml:"version"`
	Mip      MipSpec       `yaml:"mip"`
	Segments []SegmentSpec `yaml:"segments"`
	Fields   []fieldSpec   `yaml:"fields"`
	Digests  []DigestSpec  `yaml:"digests"`
}

// Template is an immutable named template blob.
type Template struct {
	name      SegmentName
	data      []byte
	subHeader int
}

// Name returns the segment this template fills.
func (t *Template) Name() SegmentName { return t.name }

// Len returns the template length in bytes.
func (t *Template) Len() int { return len(t.data) }

// SubHeaderSize returns the size of the leading sub-header excluded from the
// segment's content digest.
func (t *Template) SubHeaderSize() int { return t.subHeader }

// Bytes returns a copy of the template bytes.
func (t *Template) Bytes() []byte {
	out := make([]byte, len(t.data))
	copy(out, t.data)
	return out
}

// Schema is the loaded, validated format description.
type Schema struct {
	Version  int
	Mip      MipSpec
	Segments []SegmentSpec
	Digests  []DigestSpec
	Table    *PatchTable

	templates map[SegmentName]*Template
	segments  map[SegmentName]SegmentSpec
}

var (
	defaultOnce   sync.Once
	defaultSchema *Schema
	defaultErr    error
)

// Load returns the embedded v1 schema. It is parsed and validated once.
func Load() (*Schema, error) {
	defaultOnce.Do(func() {
		assetFS, err := fs.Sub(assets, "assets")
		if err != nil {
			defaultErr = err
			return
		}
		doc, err := fs.ReadFile(assetFS, "schema.yaml")
		if err != nil {
			defaultErr = fmt.Errorf("failed to read schema: %w", err)
			return
		}
		defaultSchema, defaultErr = Parse(doc, assetFS)
	})
	return defaultSchema, defaultErr
}

// Parse decodes a schema document and loads its templates from files.
func Parse(doc []byte, files fs.FS) (*Schema, error) {
	var d document
	if err := yaml.Unmarshal(doc, &d); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	if d.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported schema version %d (want %d)", d.Version, FormatVersion)
	}

	s := &Schema{
		Version:   d.Version,
		Mip:       d.Mip,
		Segments:  d.Segments,
		templates: make(map[SegmentName]*Template),
		segments:  make(map[SegmentName]SegmentSpec),
	}

	for _, seg := range d.Segments {
		if _, dup := s.segments[seg.Name]; dup {
			return nil, fmt.Errorf("duplicate segment %q", seg.Name)
		}
		if seg.Overlays != "" {
			if _, ok := s.segments[seg.Overlays]; !ok {
				return nil, fmt.Errorf("segment %q overlays %q which is not declared before it: %w",
					seg.Name, seg.Overlays, dxmerrors.ErrUnknownSegment)
			}
		}
		if seg.SubHeader < 0 || seg.SubHeader >= seg.Length {
			return nil, fmt.Errorf("segment %q sub-header %d outside its %d bytes: %w",
				seg.Name, seg.SubHeader, seg.Length, dxmerrors.ErrFieldOutOfBounds)
		}
		s.segments[seg.Name] = seg

		if seg.File == "" {
			continue
		}
		data, err := fs.ReadFile(files, path.Clean(seg.File))
		if err != nil {
			return nil, fmt.Errorf("failed to read template %q: %w", seg.Name, err)
		}
		if len(data) != seg.Length {
			return nil, fmt.Errorf("template %q is %d bytes, schema declares %d: %w",
				seg.Name, len(data), seg.Length, dxmerrors.ErrInvariantViolation)
		}
		ok, err := VerifyChecksum(data, seg.Checksum)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", seg.Name, err)
		}
		if !ok {
			return nil, fmt.Errorf("template %q: %w", seg.Name, dxmerrors.ErrTemplateChecksum)
		}
		s.templates[seg.Name] = &Template{name: seg.Name, data: data, subHeader: seg.SubHeader}
	}

	if payload, ok := s.segments[Payload]; !ok || payload.Length != d.Mip.PayloadSize {
		return nil, fmt.Errorf("payload segment must be declared with length %d: %w",
			d.Mip.PayloadSize, dxmerrors.ErrInvariantViolation)
	}

	table, err := newPatchTable(d.Fields)
	if err != nil {
		return nil, err
	}
	s.Table = table

	for i := range d.Digests {
		algo, err := ParseAlgorithm(d.Digests[i].Algorithm)
		if err != nil {
			return nil, fmt.Errorf("digest %q: %w", d.Digests[i].Name, err)
		}
		d.Digests[i].algorithm = algo
	}
	s.Digests = d.Digests

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Template returns the template blob for a segment.
func (s *Schema) Template(name SegmentName) (*Template, bool) {
	t, ok := s.templates[name]
	return t, ok
}

// Segment returns the declaration of a segment.
func (s *Schema) Segment(name SegmentName) (SegmentSpec, bool) {
	seg, ok := s.segments[name]
	return seg, ok
}

// Digest returns the digest declaration with the given name.
func (s *Schema) Digest(name string) (DigestSpec, bool) {
	for _, d := range s.Digests {
		if d.Name == name {
			return d, true
		}
	}
	return DigestSpec{}, false
}

// Validate checks that every patch entry lies inside its segment, that every
// field reference resolves, that each range digest starts right after its
// segment's sub-header, and that no digest covers its own output slot.
func (s *Schema) Validate() error {
	for _, e := range s.Table.Entries() {
		seg, ok := s.segments[e.Segment]
		if !ok {
			return fmt.Errorf("field %q: segment %q: %w", e.Field, e.Segment, dxmerrors.ErrUnknownSegment)
		}
		if e.Offset < 0 || e.Length <= 0 || e.End() > seg.Length {
			return fmt.Errorf("field %q at %s+%d (len %d, segment len %d): %w",
				e.Field, e.Segment, e.Offset, e.Length, seg.Length, dxmerrors.ErrFieldOutOfBounds)
		}
		if want := e.Kind.width(); want != 0 && e.Length != want {
			return fmt.Errorf("field %q is %d bytes, %s fields are %d: %w",
				e.Field, e.Length, e.Kind, want, dxmerrors.ErrInvariantViolation)
		}
		switch e.Kind {
		case KindSegmentOffset, KindSegmentLength:
			if _, ok := s.segments[SegmentName(e.Source)]; !ok {
				return fmt.Errorf("field %q: source %q: %w", e.Field, e.Source, dxmerrors.ErrUnknownSegment)
			}
		case KindContentDigest, KindIndexDigest:
			if _, ok := s.Digest(e.Source); !ok {
				return fmt.Errorf("field %q: unknown digest %q: %w", e.Field, e.Source, dxmerrors.ErrUnknownField)
			}
		}
	}

	for _, d := range s.Digests {
		entries, err := s.Table.Field(d.Field)
		if err != nil {
			return fmt.Errorf("digest %q: %w", d.Name, err)
		}
		for _, e := range entries {
			if e.Length != d.algorithm.Size() {
				return fmt.Errorf("digest %q writes %d bytes into a %d-byte field: %w",
					d.Name, d.algorithm.Size(), e.Length, dxmerrors.ErrInvariantViolation)
			}
		}
		if d.HashesFilename() {
			continue
		}

		seg, ok := s.segments[d.Segment]
		if !ok {
			return fmt.Errorf("digest %q: segment %q: %w", d.Name, d.Segment, dxmerrors.ErrUnknownSegment)
		}
		if d.Start < 0 || d.End <= d.Start || d.End > seg.Length {
			return fmt.Errorf("digest %q range [%d,%d) outside %s (len %d): %w",
				d.Name, d.Start, d.End, d.Segment, seg.Length, dxmerrors.ErrFieldOutOfBounds)
		}
		if d.Start != seg.SubHeader {
			return fmt.Errorf("digest %q starts at %s+%d but the segment's sub-header is %d bytes: %w",
				d.Name, d.Segment, d.Start, seg.SubHeader, dxmerrors.ErrInvariantViolation)
		}
		for _, e := range entries {
			if e.Segment == d.Segment && e.Offset < d.End && d.Start < e.End() {
				return fmt.Errorf("digest %q covers its own slot at %s+%d: %w",
					d.Name, e.Segment, e.Offset, dxmerrors.ErrPlanOrder)
			}
		}
	}
	return nil
}
