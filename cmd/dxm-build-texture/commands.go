package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gibbed/Gibbed.DXM/pkg"
	"github.com/gibbed/Gibbed.DXM/pkg/texentry/codec"
)

func newVerifyCmd(globals *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <entry>...",
		Short: "Re-check identifier, layout and digest fields of built entries",
		Args:  usageArgs(1, -1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := globals.setup("dxm-verify", stderr)
			if err != nil {
				return err
			}

			var errs []error
			rows := make([][]string, 0, len(args))
			for _, path := range args {
				report, err := pkg.VerifyEntryWithLogger(path, logger)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", path, err))
				}
				status := "ok"
				if err != nil {
					status = "FAILED"
				}
				id, sum := "-", "-"
				if report != nil {
					id = report.Identifier.String()
					sum = report.Checksum
				}
				rows = append(rows, []string{path, id, status, sum})
			}

			fmt.Fprintln(stdout, renderTable(
				[]string{"Entry", "ID", "Status", "Checksum"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
			))
			return errors.Join(errs...)
		},
	}
}

func newLayoutCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "layout",
		Short: "Show the format v1 segment layout and patch table",
		Args:  usageArgs(0, 0),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, layout, err := pkg.DescribeLayout()
			if err != nil {
				return err
			}

			segRows := make([][]string, 0, len(layout.Segments()))
			for _, s := range layout.Segments() {
				note := ""
				if s.Overlaid {
					note = "overlaid"
				}
				segRows = append(segRows, []string{
					string(s.Name),
					strconv.Itoa(s.Offset),
					strconv.Itoa(s.Length),
					note,
				})
			}
			fmt.Fprintf(stdout, "Format v%d, %s entry\n", schema.Version, humanize.Bytes(uint64(layout.Size())))
			fmt.Fprintln(stdout, renderTable(
				[]string{"Segment", "Offset", "Length", "Note"},
				segRows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
			))

			var fieldRows [][]string
			for _, field := range schema.Table.Fields() {
				entries, err := schema.Table.Field(field)
				if err != nil {
					return err
				}
				for _, e := range entries {
					r, err := layout.Resolve(e)
					if err != nil {
						return err
					}
					fieldRows = append(fieldRows, []string{
						e.Field,
						string(e.Kind),
						fmt.Sprintf("%s+%d", e.Segment, e.Offset),
						r.String(),
						e.Source,
					})
				}
			}
			fmt.Fprintln(stdout, renderTable(
				[]string{"Field", "Kind", "Location", "Absolute", "Source"},
				fieldRows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))

			fmt.Fprintln(stdout, renderTable(
				[]string{"Codec", "DXGI", "Block bytes", "Chain bytes", "Fits"},
				codecRows(schema.Mip.BaseSize, schema.Mip.Levels, schema.Mip.PayloadSize),
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}

// codecRows lists every registered block codec and whether its chain matches
// the fixed payload size.
func codecRows(baseSize, levels, payloadSize int) [][]string {
	formats := codec.Registered()
	rows := make([][]string, 0, len(formats))
	for _, f := range formats {
		size := codec.ChainSize(baseSize, levels, f)
		fits := "no"
		if size == payloadSize {
			fits = "yes"
		}
		rows = append(rows, []string{
			f.String(),
			strconv.FormatUint(uint64(f.DXGIFormat()), 10),
			strconv.Itoa(f.BlockBytes()),
			strconv.Itoa(size),
			fits,
		})
	}
	return rows
}
