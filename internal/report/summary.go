package report

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dbsmedya/wsstats/internal/aggregate"
)

// WriteSummary prints the run totals that sit above the table.
func WriteSummary(w io.Writer, stats aggregate.Stats) error {
	size := stats.Bytes
	if size < 0 {
		size = 0
	}
	lines := []string{
		fmt.Sprintf("Workspaces scanned:    %s (%s public, %s private)",
			humanize.Comma(int64(stats.Partitions)),
			humanize.Comma(int64(stats.PublicPartitions)),
			humanize.Comma(int64(stats.Partitions-stats.PublicPartitions))),
		fmt.Sprintf("Objects:               %s", humanize.Comma(stats.Objects)),
		fmt.Sprintf("Rows counted:          %s", humanize.Comma(stats.Rows)),
		fmt.Sprintf("Unique savers:         %s", humanize.Comma(int64(stats.Savers))),
		fmt.Sprintf("Total size:            %s (%s bytes)",
			humanize.Bytes(uint64(size)), humanize.Comma(stats.Bytes)),
		fmt.Sprintf("Windows / lookups:     %s / %s",
			humanize.Comma(stats.Windows), humanize.Comma(stats.LookupQueries)),
		fmt.Sprintf("Elapsed:               %s", stats.Duration.Round(time.Millisecond)),
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}
