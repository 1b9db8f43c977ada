package texentry

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	dxmerrors "github.com/gibbed/Gibbed.DXM/pkg/texentry/errors"
	"github.com/gibbed/Gibbed.DXM/pkg/texentry/format_v1"
)

// Check is the outcome of one verification check. Err is nil on success.
type Check struct {
	Name string
	Err  error
}

// Report summarizes a verified entry.
type Report struct {
	EntryName  string
	Identifier Identifier
	Size       int
	// Checksum is the prefixed sha256 of the whole entry.
	Checksum string
	Digests  Digests
	Checks   []Check
}

// OK reports whether every check passed.
func (r *Report) OK() bool {
	return r.Err() == nil
}

// Err joins every failed check.
func (r *Report) Err() error {
	var errs []error
	for _, c := range r.Checks {
		if c.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, c.Err))
		}
	}
	return errors.Join(errs...)
}

func (r *Report) add(name string, err error) {
	r.Checks = append(r.Checks, Check{Name: name, Err: err})
}

// VerifyFile reads an entry from disk and verifies it. The name digest is
// checked against the file's own base name.
func VerifyFile(schema *format_v1.Schema, path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry: %w", err)
	}
	return VerifyBytes(schema, EntryName(path), data)
}

// VerifyBytes re-derives every patched field of an entry and compares it with
// what is stored: identifier agreement, layout fields, the name digest, every
// content digest and the index digest. All checks run; the returned error
// joins the failures.
func VerifyBytes(schema *format_v1.Schema, entryName string, data []byte) (*Report, error) {
	layout, err := NewLayout(schema, schema.Mip.PayloadSize)
	if err != nil {
		return nil, err
	}
	if len(data) != layout.Size() {
		return nil, fmt.Errorf("entry is %d bytes, format v%d entries are %d: %w",
			len(data), schema.Version, layout.Size(), dxmerrors.ErrEntrySize)
	}

	buf := &OutputBuffer{data: data, layout: layout}
	report := &Report{
		EntryName: entryName,
		Size:      len(data),
		Checksum:  format_v1.CalculateChecksum(data, format_v1.ChecksumSHA256),
		Digests:   Digests{},
	}

	id, err := verifyIdentifier(buf, schema.Table)
	report.Identifier = id
	report.add("identifier", err)

	report.add("layout", verifyLayout(buf, schema.Table))

	for _, d := range schema.Digests {
		report.add(digestStepName(d.Name), verifyDigest(buf, schema, d, entryName, report.Digests))
	}

	return report, report.Err()
}

func verifyIdentifier(buf *OutputBuffer, table *format_v1.PatchTable) (Identifier, error) {
	var first []byte
	for _, e := range table.Kind(format_v1.KindIdentifier) {
		v, err := buf.Read(e)
		if err != nil {
			return 0, err
		}
		if first == nil {
			first = v
			continue
		}
		if !bytes.Equal(first, v) {
			return 0, fmt.Errorf("%s holds %q, expected %q: %w", e, v, first, dxmerrors.ErrIdentifierMismatch)
		}
	}
	id, err := ParseIdentifier(string(first))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", dxmerrors.ErrIdentifierMismatch, err)
	}
	if id.String() != string(first) {
		return 0, fmt.Errorf("identifier %q is not zero-padded: %w", first, dxmerrors.ErrIdentifierMismatch)
	}
	return id, nil
}

func verifyLayout(buf *OutputBuffer, table *format_v1.PatchTable) error {
	entries := append(table.Kind(format_v1.KindSegmentOffset), table.Kind(format_v1.KindSegmentLength)...)
	for _, e := range entries {
		want, err := layoutValue(buf.Layout(), e)
		if err != nil {
			return err
		}
		got, err := buf.Uint32(e)
		if err != nil {
			return err
		}
		if got != want {
			return fmt.Errorf("%s holds %d, expected %d: %w", e, got, want, dxmerrors.ErrLayoutMismatch)
		}
	}
	return nil
}

func verifyDigest(buf *OutputBuffer, schema *format_v1.Schema, d format_v1.DigestSpec, entryName string, out Digests) error {
	var want []byte
	if d.HashesFilename() {
		want = format_v1.Sum(d.ChecksumAlgorithm(), []byte(entryName))
	} else {
		r, err := buf.Layout().ResolveSpan(d.Segment, d.Start, d.End)
		if err != nil {
			return err
		}
		data, err := buf.Slice(r)
		if err != nil {
			return err
		}
		want = format_v1.Sum(d.ChecksumAlgorithm(), data)
	}
	out[d.Name] = want

	entries, err := schema.Table.Field(d.Field)
	if err != nil {
		return err
	}
	for _, e := range entries {
		got, err := buf.Read(e)
		if err != nil {
			return err
		}
		if !bytes.Equal(got, want) {
			return fmt.Errorf("%s holds %x, expected %x: %w", e, got, want, dxmerrors.ErrDigestMismatch)
		}
	}
	return nil
}
