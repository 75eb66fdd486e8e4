package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
	"github.com/parquet-go/parquet-go"

	"github.com/dbsmedya/wsstats/internal/config"
)

// Options controls rendering.
type Options struct {
	Format string // config.FormatTable, FormatTSV or FormatParquet
	Color  bool   // color the table header
}

// Write renders rep to w in the requested format.
func Write(w io.Writer, rep *Report, opts Options) error {
	switch opts.Format {
	case config.FormatTSV:
		return WriteTSV(w, rep)
	case config.FormatTable, "":
		return WriteTable(w, rep, opts.Color)
	case config.FormatParquet:
		return WriteParquet(w, rep)
	default:
		return fmt.Errorf("unknown report format %q", opts.Format)
	}
}

// WriteTSV writes one tab-separated line per record, header first.
func WriteTSV(w io.Writer, rep *Report) error {
	bw := bufio.NewWriter(w)
	for _, rec := range rep.Records() {
		if _, err := bw.WriteString(strings.Join(rec, "\t") + "\n"); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	return bw.Flush()
}

var headerStyle = color.New(color.FgCyan, color.OpBold)

// WriteTable writes a pipe-delimited table with columns padded to their
// display width and a -+- separator under the header.
func WriteTable(w io.Writer, rep *Report, colored bool) error {
	records := rep.Records()
	widths := make([]int, len(records[0]))
	for _, rec := range records {
		for i, cell := range rec {
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	bw := bufio.NewWriter(w)
	for n, rec := range records {
		cells := make([]string, len(rec))
		for i, cell := range rec {
			cells[i] = runewidth.FillRight(cell, widths[i])
			if n == 0 && colored {
				cells[i] = headerStyle.Sprint(cells[i])
			}
		}
		if _, err := bw.WriteString(strings.Join(cells, " | ") + "\n"); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}

		if n == 0 {
			dashes := make([]string, len(widths))
			for i, cw := range widths {
				dashes[i] = strings.Repeat("-", cw)
			}
			if _, err := bw.WriteString(strings.Join(dashes, "-+-") + "\n"); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
		}
	}
	return bw.Flush()
}

// FlatRow is a report row with one field per dimension. Dimensions that were
// not grouped on are empty. It is the Parquet schema and the stored snapshot
// shape.
type FlatRow struct {
	Kind    string `parquet:"kind"`
	Owner   string `parquet:"owner"`
	Public  string `parquet:"public"`
	Deleted string `parquet:"deleted"`
	Type    string `parquet:"type"`
	Version string `parquet:"version"`
	Count   int64  `parquet:"count"`
	Bytes   int64  `parquet:"bytes"`
}

// Flatten spreads r's values over the dimension fields.
func Flatten(dims []Dimension, r Row) FlatRow {
	pr := FlatRow{Kind: string(r.Kind), Count: r.Count, Bytes: r.Bytes}
	for i, d := range dims {
		v := r.Values[i]
		switch d {
		case DimOwner:
			pr.Owner = v
		case DimPublic:
			pr.Public = v
		case DimDeleted:
			pr.Deleted = v
		case DimType:
			pr.Type = v
		case DimVersion:
			pr.Version = v
		}
	}
	return pr
}

// WriteParquet writes every row, subtotals and total included, as a Parquet
// file.
func WriteParquet(w io.Writer, rep *Report) error {
	rows := make([]FlatRow, len(rep.Rows))
	for i, r := range rep.Rows {
		rows[i] = Flatten(rep.Dimensions, r)
	}

	pw := parquet.NewGenericWriter[FlatRow](w)
	if _, err := pw.Write(rows); err != nil {
		_ = pw.Close()
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}
