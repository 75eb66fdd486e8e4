// Package report turns an accumulator into a sorted table with subtotals and
// writes it as TSV, an aligned text table or Parquet.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dbsmedya/wsstats/internal/aggregate"
)

// Dimension names a key field that rows can be grouped by.
type Dimension string

const (
	DimOwner   Dimension = "owner"
	DimPublic  Dimension = "public"
	DimDeleted Dimension = "deleted"
	DimType    Dimension = "type"
	DimVersion Dimension = "version"
)

// AllDimensions lists every dimension in key order.
var AllDimensions = []Dimension{DimOwner, DimPublic, DimDeleted, DimType, DimVersion}

// Markers used in subtotal and total rows.
const (
	TotalMarker = "TTL"
	EmptyMarker = "-"
)

// RowKind distinguishes detail rows from subtotal and grand total rows.
type RowKind string

const (
	KindDetail   RowKind = "detail"
	KindSubtotal RowKind = "subtotal"
	KindTotal    RowKind = "total"
)

// Row is one line of the report.
type Row struct {
	Kind   RowKind
	Values []string // one per dimension
	aggregate.Totals
}

// Record renders the row as strings: dimension values, count, bytes.
func (r Row) Record() []string {
	rec := make([]string, 0, len(r.Values)+2)
	rec = append(rec, r.Values...)
	return append(rec, strconv.FormatInt(r.Count, 10), strconv.FormatInt(r.Bytes, 10))
}

// Report is the projected, sorted form of an accumulator.
type Report struct {
	Dimensions []Dimension
	Rows       []Row
}

// Header returns the column names.
func (r *Report) Header() []string {
	h := make([]string, 0, len(r.Dimensions)+2)
	for _, d := range r.Dimensions {
		h = append(h, string(d))
	}
	return append(h, "count", "bytes")
}

// Records returns the header followed by every row as strings.
func (r *Report) Records() [][]string {
	out := make([][]string, 0, len(r.Rows)+1)
	out = append(out, r.Header())
	for _, row := range r.Rows {
		out = append(out, row.Record())
	}
	return out
}

// Details returns only the detail rows.
func (r *Report) Details() []Row {
	var out []Row
	for _, row := range r.Rows {
		if row.Kind == KindDetail {
			out = append(out, row)
		}
	}
	return out
}

// ParseDimensions validates dimension names. An empty list selects all.
func ParseDimensions(names []string) ([]Dimension, error) {
	if len(names) == 0 {
		return append([]Dimension(nil), AllDimensions...), nil
	}
	seen := make(map[Dimension]bool, len(names))
	dims := make([]Dimension, 0, len(names))
	for _, n := range names {
		d := Dimension(strings.ToLower(strings.TrimSpace(n)))
		if !isDimension(d) {
			return nil, fmt.Errorf("unknown dimension %q", n)
		}
		if seen[d] {
			return nil, fmt.Errorf("duplicate dimension %q", n)
		}
		seen[d] = true
		dims = append(dims, d)
	}
	return dims, nil
}

func isDimension(d Dimension) bool {
	for _, known := range AllDimensions {
		if d == known {
			return true
		}
	}
	return false
}

func dimensionValue(k aggregate.Key, d Dimension) string {
	switch d {
	case DimOwner:
		return k.Owner
	case DimPublic:
		return strconv.FormatBool(k.Public)
	case DimDeleted:
		return strconv.FormatBool(k.Deleted)
	case DimType:
		return k.TypeName
	case DimVersion:
		return k.TypeVersion
	}
	return ""
}

// Build projects acc onto dims and sorts the result. With more than one
// dimension a subtotal row follows each group of the first dimension. The
// grand total row is always present.
func Build(acc aggregate.Accumulator, dims []Dimension) (*Report, error) {
	if len(dims) == 0 {
		return nil, fmt.Errorf("at least one dimension is required")
	}
	for _, d := range dims {
		if !isDimension(d) {
			return nil, fmt.Errorf("unknown dimension %q", d)
		}
	}

	projected := make(map[string]*Row, len(acc))
	for k, t := range acc {
		values := make([]string, len(dims))
		for i, d := range dims {
			values[i] = dimensionValue(k, d)
		}
		id := strings.Join(values, "\x00")
		row, ok := projected[id]
		if !ok {
			row = &Row{Kind: KindDetail, Values: values}
			projected[id] = row
		}
		row.Totals = row.Totals.Add(t)
	}

	details := make([]Row, 0, len(projected))
	for _, row := range projected {
		details = append(details, *row)
	}
	sort.Slice(details, func(i, j int) bool {
		return lessValues(dims, details[i].Values, details[j].Values)
	})

	rep := &Report{Dimensions: dims, Rows: make([]Row, 0, len(details)*2+1)}
	var grand, group aggregate.Totals
	for i, row := range details {
		rep.Rows = append(rep.Rows, row)
		grand = grand.Add(row.Totals)
		group = group.Add(row.Totals)

		last := i == len(details)-1
		if len(dims) > 1 && (last || details[i+1].Values[0] != row.Values[0]) {
			rep.Rows = append(rep.Rows, Row{
				Kind:   KindSubtotal,
				Values: markerValues(len(dims), row.Values[0]),
				Totals: group,
			})
			group = aggregate.Totals{}
		}
	}
	rep.Rows = append(rep.Rows, Row{
		Kind:   KindTotal,
		Values: markerValues(len(dims)),
		Totals: grand,
	})
	return rep, nil
}

// markerValues builds [prefix..., TTL, -, ...] padded to n values.
func markerValues(n int, prefix ...string) []string {
	values := make([]string, 0, n)
	values = append(values, prefix...)
	values = append(values, TotalMarker)
	for len(values) < n {
		values = append(values, EmptyMarker)
	}
	return values
}

func lessValues(dims []Dimension, a, b []string) bool {
	for i, d := range dims {
		if c := compareValue(d, a[i], b[i]); c != 0 {
			return c < 0
		}
	}
	return false
}

func compareValue(d Dimension, a, b string) int {
	if d == DimVersion {
		return compareVersions(a, b)
	}
	return strings.Compare(a, b)
}

// compareVersions orders dotted versions by numeric component, so 1.2 sorts
// before 1.10. Non-numeric components compare as strings.
func compareVersions(a, b string) int {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(pa) && i < len(pb); i++ {
		na, errA := strconv.ParseInt(pa[i], 10, 64)
		nb, errB := strconv.ParseInt(pb[i], 10, 64)
		switch {
		case errA == nil && errB == nil:
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
		case errA == nil:
			return -1
		case errB == nil:
			return 1
		default:
			if c := strings.Compare(pa[i], pb[i]); c != 0 {
				return c
			}
		}
	}
	switch {
	case len(pa) < len(pb):
		return -1
	case len(pa) > len(pb):
		return 1
	}
	return strings.Compare(a, b)
}
