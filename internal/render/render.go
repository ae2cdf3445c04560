// Package render prints snapshots, comparisons, and history as terminal tables.
package render

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/maruel/natural"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"dp-go/internal/dp"
)

// TimeLayout is used for every timestamp shown to the user.
const TimeLayout = "2006-01-02 15:04:05"

// Renderer writes human-readable tables to w. Times are shown in loc.
type Renderer struct {
	w   io.Writer
	loc *time.Location
}

// NewRenderer creates a Renderer. A nil loc means time.Local.
func NewRenderer(w io.Writer, loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{w: w, loc: loc}
}

// FormatSize renders a byte count in 1024-based units.
func FormatSize(bytes uint64) string {
	return humanize.IBytes(bytes)
}

// FormatCount renders a count with thousands separators.
func FormatCount(n uint64) string {
	return humanize.Comma(int64(n))
}

func (r *Renderer) formatTime(unix int64) string {
	return time.Unix(unix, 0).In(r.loc).Format(TimeLayout)
}

func (r *Renderer) newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(r.w)
	if len(header) > 0 {
		table.SetHeader(header)
	}
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// Summaries prints the scan history table.
func (r *Renderer) Summaries(summaries []dp.SnapshotSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(r.w, "No scans found.")
		return
	}

	table := r.newTable("ID", "Root", "Captured", "Files", "Size")
	table.AppendBulk(lo.Map(summaries, func(s dp.SnapshotSummary, _ int) []string {
		return []string{s.ID, s.RootPath, r.formatTime(s.CapturedAt), FormatCount(s.FileCount), FormatSize(s.TotalSize)}
	}))
	table.Render()
}

// Summary prints the details of one snapshot as key/value rows.
func (r *Renderer) Summary(s dp.SnapshotSummary) {
	table := r.newTable()
	table.AppendBulk([][]string{
		{"ID", s.ID},
		{"Root", s.RootPath},
		{"Captured", r.formatTime(s.CapturedAt)},
		{"Files", FormatCount(s.FileCount)},
		{"Total size", FormatSize(s.TotalSize)},
		{"Scan duration", s.Duration().String()},
	})
	table.Render()
}

// Snapshot prints the summary and the first limit entries in natural path
// order. limit <= 0 prints every entry.
func (r *Renderer) Snapshot(s *dp.Snapshot, limit int) {
	r.Summary(s.Summary())
	fmt.Fprintln(r.w)

	entries := slices.Clone(s.Entries)
	slices.SortFunc(entries, func(a, b dp.FileRecord) int {
		switch {
		case natural.Less(a.Path, b.Path):
			return -1
		case natural.Less(b.Path, a.Path):
			return 1
		default:
			return 0
		}
	})

	shown := limitSlice(entries, limit)
	table := r.newTable("Type", "Path", "Size", "Modified")
	table.AppendBulk(lo.Map(shown, func(e dp.FileRecord, _ int) []string {
		if e.IsDirectory {
			return []string{"dir", e.Path, "-", r.formatTime(e.Modified)}
		}
		return []string{"file", e.Path, FormatSize(e.Size), r.formatTime(e.Modified)}
	}))
	table.Render()
	r.more(len(entries) - len(shown))
}

// Comparison prints change counts and the first limit differences.
// limit <= 0 prints every difference.
func (r *Renderer) Comparison(c *dp.ComparisonResult, limit int) {
	fmt.Fprintf(r.w, "%s (%s)  ->  %s (%s)\n\n",
		c.Left.ID, r.formatTime(c.Left.CapturedAt), c.Right.ID, r.formatTime(c.Right.CapturedAt))

	counts := r.newTable("Added", "Deleted", "Modified", "Unchanged", "Size change")
	counts.Append([]string{
		humanize.Comma(int64(c.AddedCount)),
		humanize.Comma(int64(c.DeletedCount)),
		humanize.Comma(int64(c.ModifiedCount)),
		humanize.Comma(int64(c.UnchangedCount)),
		SizeDelta(c.Left.TotalSize, c.Right.TotalSize),
	})
	counts.Render()

	if !c.HasChanges() {
		fmt.Fprintln(r.w, "\nNo differences.")
		return
	}
	fmt.Fprintln(r.w)

	shown := limitSlice(c.Differences, limit)
	table := r.newTable("Status", "Path", "Old Size", "New Size")
	table.AppendBulk(lo.Map(shown, func(d dp.FileDifference, _ int) []string {
		return []string{d.Status.Title(), d.Path, optionalSize(d.OldSize), optionalSize(d.NewSize)}
	}))
	table.Render()
	r.more(len(c.Differences) - len(shown))
}

// Operations prints the operation history.
func (r *Renderer) Operations(ops []*dp.Operation) {
	if len(ops) == 0 {
		fmt.Fprintln(r.w, "No operations recorded.")
		return
	}

	table := r.newTable("ID", "Operation", "Parameters", "Status", "Snapshot", "Started", "Took")
	table.AppendBulk(lo.Map(ops, func(op *dp.Operation, _ int) []string {
		took := "-"
		if op.FinishedAt != nil {
			took = op.FinishedAt.Sub(op.StartedAt).Round(time.Millisecond).String()
		}
		return []string{
			fmt.Sprint(op.ID),
			op.Operation,
			op.Parameters,
			op.Status,
			lo.Ternary(op.SnapshotID == "", "-", op.SnapshotID),
			op.StartedAt.In(r.loc).Format(TimeLayout),
			took,
		}
	}))
	table.Render()
}

// SizeDelta renders the signed size difference between two totals.
func SizeDelta(before, after uint64) string {
	switch {
	case after > before:
		return "+" + FormatSize(after-before)
	case after < before:
		return "-" + FormatSize(before-after)
	default:
		return "0 B"
	}
}

func optionalSize(v *uint64) string {
	if v == nil {
		return "-"
	}
	return FormatSize(*v)
}

func (r *Renderer) more(hidden int) {
	if hidden > 0 {
		fmt.Fprintf(r.w, "... and %s more\n", humanize.Comma(int64(hidden)))
	}
}

func limitSlice[T any](items []T, limit int) []T {
	if limit <= 0 || limit >= len(items) {
		return items
	}
	return items[:limit]
}

// Progress formats a progress event as a single status line.
func Progress(ev dp.ProgressEvent) string {
	return fmt.Sprintf("Scanned %s entries (%s)  %s",
		humanize.Comma(ev.FilesScanned), FormatSize(ev.TotalSize), truncateMiddle(ev.CurrentPath, 60))
}

func truncateMiddle(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max || max < 5 {
		return s
	}
	half := (max - 3) / 2
	return string(runes[:half]) + "..." + string(runes[len(runes)-(max-3-half):])
}
