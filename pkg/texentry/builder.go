// Package texentry builds texture archive entries: it turns a source image
// into a BC3 mip chain, places it between the format's template segments,
// patches the identifier and layout fields, and stores every digest in
// dependency order before writing the entry atomically.
package texentry

import (
	"context"
	"fmt"
	"image"
	"os"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-hclog"

	"github.com/gibbed/Gibbed.DXM/pkg/texentry/archive"
	"github.com/gibbed/Gibbed.DXM/pkg/texentry/codec"
	dxmerrors "github.com/gibbed/Gibbed.DXM/pkg/texentry/errors"
	"github.com/gibbed/Gibbed.DXM/pkg/texentry/format_v1"
	"github.com/gibbed/Gibbed.DXM/pkg/texentry/mipmap"
	"github.com/gibbed/Gibbed.DXM/pkg/utils/permissions"
)

// Options tunes a Builder. Zero values select defaults.
type Options struct {
	// Workers bounds parallel mip resampling and compression.
	// Zero means runtime.NumCPU().
	Workers int

	// Format overrides the schema's block format. A format whose chain size
	// differs from the schema's payload size is rejected.
	Format codec.Format

	// FileMode is applied to written entries. Zero means permissions.DefaultFilePerms.
	FileMode os.FileMode
}

// Result describes one built entry.
type Result struct {
	Identifier Identifier
	EntryName  string
	OutputPath string
	Size       int
	Layout     *Layout
	Digests    Digests
	Steps      []string
	Extents    []codec.Extent
	Warnings   []string
}

// Builder runs the full pipeline for one schema.
type Builder struct {
	schema    *format_v1.Schema
	codec     codec.Codec
	mips      *mipmap.Builder
	assembler *Assembler
	writer    *archive.Writer
	workers   int
	logger    hclog.Logger
}

// NewBuilder wires the pipeline stages for a schema.
func NewBuilder(schema *format_v1.Schema, opts Options, logger hclog.Logger) (*Builder, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	format := opts.Format
	if format == codec.FormatUnknown {
		f, err := codec.ParseFormat(schema.Mip.Format)
		if err != nil {
			return nil, fmt.Errorf("schema format: %w", err)
		}
		format = f
	}
	c, err := codec.New(format)
	if err != nil {
		return nil, err
	}

	if size := codec.ChainSize(schema.Mip.BaseSize, schema.Mip.Levels, format); size != schema.Mip.PayloadSize {
		return nil, fmt.Errorf("%s chain is %d bytes, format requires %d: %w",
			c.Name(), size, schema.Mip.PayloadSize, dxmerrors.ErrInvariantViolation)
	}

	mips, err := mipmap.NewBuilder(schema.Mip.BaseSize, schema.Mip.Levels, workers, logger.Named("mipmap"))
	if err != nil {
		return nil, err
	}

	writer := archive.NewWriter(logger.Named("archive"))
	writer.SpaceMultiplier = DiskSpaceMultiplier
	writer.DirMode = permissions.DefaultDirPerms
	writer.FileMode = permissions.DefaultFilePerms
	if opts.FileMode != 0 {
		writer.FileMode = opts.FileMode
	}

	return &Builder{
		schema:    schema,
		codec:     c,
		mips:      mips,
		assembler: NewAssembler(schema, logger.Named("assembler")),
		writer:    writer,
		workers:   workers,
		logger:    logger,
	}, nil
}

// BuildImage runs every in-memory stage and returns the finished buffer.
// entryName is the output base name without extension; it feeds the name
// digest.
func (b *Builder) BuildImage(ctx context.Context, img image.Image, id Identifier, entryName string) (*OutputBuffer, *Result, error) {
	if !id.Valid() {
		return nil, nil, fmt.Errorf("%d: %w", uint16(id), dxmerrors.ErrIdentifierRange)
	}

	b.logger.Debug("🖼️ Building mip chain", "source", img.Bounds().Size(), "levels", b.schema.Mip.Levels)
	chain, err := b.mips.Build(ctx, img)
	if err != nil {
		return nil, nil, err
	}

	payload, extents, err := codec.CompressChain(ctx, b.codec, chain.Levels, b.workers, b.logger.Named("codec"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compress mip chain: %w", err)
	}

	buf, err := b.assembler.Assemble(payload)
	if err != nil {
		return nil, nil, err
	}

	plan, digests, err := NewIntegrityPlan(b.schema, buf.Layout(), id, entryName)
	if err != nil {
		return nil, nil, err
	}
	if err := plan.Run(buf, b.logger.Named("integrity")); err != nil {
		return nil, nil, err
	}

	for _, d := range b.schema.Digests {
		b.logger.Trace("🔐 Digest stored", "digest", d.Name, "value", digests.Hex(d.Name))
	}

	return buf, &Result{
		Identifier: id,
		EntryName:  entryName,
		Size:       buf.Len(),
		Layout:     buf.Layout(),
		Digests:    digests,
		Steps:      plan.Steps(),
		Extents:    extents,
		Warnings:   chain.Warnings,
	}, nil
}

// BuildFile decodes inputPath, builds the entry and writes it to outputPath.
func (b *Builder) BuildFile(ctx context.Context, inputPath, outputPath string, id Identifier) (*Result, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%d: %w", uint16(id), dxmerrors.ErrIdentifierRange)
	}

	img, format, err := mipmap.LoadImage(inputPath)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("📖 Source image loaded", "path", inputPath, "format", format, "size", img.Bounds().Size())

	entryName := EntryName(outputPath)
	buf, res, err := b.BuildImage(ctx, img, id, entryName)
	if err != nil {
		return nil, err
	}

	if err := b.writer.Write(outputPath, buf.Bytes()); err != nil {
		return nil, err
	}
	res.OutputPath = outputPath

	b.logger.Info("✅ Entry built",
		"output", outputPath,
		"id", id.String(),
		"size", humanize.Bytes(uint64(res.Size)))
	return res, nil
}
