package pkg

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/gibbed/Gibbed.DXM/pkg/texentry"
	"github.com/gibbed/Gibbed.DXM/pkg/texentry/format_v1"
)

// BuildOptions carries everything BuildEntry needs besides the paths.
type BuildOptions struct {
	// Identifier is the raw identifier text, validated before any I/O.
	Identifier string

	// OutputDir, Prefix and Suffix derive the output path when none is given.
	OutputDir string
	Prefix    string
	Suffix    string

	Workers  int
	FileMode os.FileMode
}

// BuildEntry builds one texture entry from inputPath. An empty outputPath is
// derived from the input name.
func BuildEntry(ctx context.Context, inputPath, outputPath string, opts BuildOptions, logger hclog.Logger) (*texentry.Result, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	idText := opts.Identifier
	if idText == "" {
		idText = texentry.DefaultIdentifier
	}
	id, err := texentry.ParseIdentifier(idText)
	if err != nil {
		return nil, err
	}

	if outputPath == "" {
		prefix, suffix := opts.Prefix, opts.Suffix
		if prefix == "" {
			prefix = texentry.DefaultOutputPrefix
		}
		if suffix == "" {
			suffix = texentry.DefaultOutputSuffix
		}
		outputPath = texentry.DeriveOutputPath(inputPath, opts.OutputDir, prefix, suffix)
	}

	schema, err := format_v1.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load format schema: %w", err)
	}

	builder, err := texentry.NewBuilder(schema, texentry.Options{
		Workers:  opts.Workers,
		FileMode: opts.FileMode,
	}, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("🚀 Building texture entry", "input", inputPath, "output", outputPath, "id", id.String())
	return builder.BuildFile(ctx, inputPath, outputPath, id)
}

// DescribeLayout returns the format schema with its nominal layout.
func DescribeLayout() (*format_v1.Schema, *texentry.Layout, error) {
	schema, err := format_v1.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load format schema: %w", err)
	}
	layout, err := texentry.NewLayout(schema, schema.Mip.PayloadSize)
	if err != nil {
		return nil, nil, err
	}
	return schema, layout, nil
}
