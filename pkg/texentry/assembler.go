package texentry

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-hclog"

	dxmerrors "github.com/gibbed/Gibbed.DXM/pkg/texentry/errors"
	"github.com/gibbed/Gibbed.DXM/pkg/texentry/format_v1"
)

// Assembler concatenates template segments and the compressed payload into
// an OutputBuffer. It owns placement only; no field is patched here.
type Assembler struct {
	schema *format_v1.Schema
	logger hclog.Logger
}

// NewAssembler returns an assembler for a schema.
func NewAssembler(schema *format_v1.Schema, logger hclog.Logger) *Assembler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Assembler{schema: schema, logger: logger}
}

// Assemble places every segment and returns the unpatched buffer. The payload
// must be exactly the size the schema was derived from; any codec or mip
// configuration that changes it is rejected.
func (a *Assembler) Assemble(payload []byte) (*OutputBuffer, error) {
	if len(payload) != a.schema.Mip.PayloadSize {
		return nil, fmt.Errorf("payload is %d bytes, format requires %d: %w",
			len(payload), a.schema.Mip.PayloadSize, dxmerrors.ErrInvariantViolation)
	}

	layout, err := NewLayout(a.schema, len(payload))
	if err != nil {
		return nil, err
	}

	buf := &OutputBuffer{data: make([]byte, layout.Size()), layout: layout}
	for _, spec := range a.schema.Segments {
		seg, err := layout.Segment(spec.Name)
		if err != nil {
			return nil, err
		}

		var src []byte
		if tpl, ok := a.schema.Template(spec.Name); ok {
			src = tpl.Bytes()
		} else if spec.Name == format_v1.Payload {
			src = payload
		} else {
			return nil, fmt.Errorf("segment %s has no template and is not the payload: %w",
				spec.Name, dxmerrors.ErrInvariantViolation)
		}

		copy(buf.data[seg.Offset:seg.Offset+len(src)], src)
		a.logger.Trace("📦 Segment placed",
			"segment", spec.Name,
			"offset", fmt.Sprintf("0x%X", seg.Offset),
			"length", len(src),
			"overlays", spec.Overlays)
	}

	a.logger.Debug("📦 Entry assembled", "size", humanize.Bytes(uint64(buf.Len())), "segments", len(a.schema.Segments))
	return buf, nil
}
