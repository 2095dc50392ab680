package observability

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

// RenderStatus writes the administrative snapshot as plain-text
// tables, used by the viewer tool and the SIGUSR1 status dump.
func RenderStatus(w io.Writer, s Status, colours bool) {
	fmt.Fprintln(w, heading("MEMORY USAGE", colours))
	usage := newStatusTable(w)
	usage.SetHeader([]string{"Heap Alloc", "Heap Sys", "RSS", "GC Count", "Growth MB/min", "Policy"})
	usage.Append([]string{
		formatBytes(s.Usage.HeapAlloc),
		formatBytes(s.Usage.HeapSys),
		formatBytes(s.Usage.RSS),
		fmt.Sprintf("%d", s.Usage.NumGC),
		fmt.Sprintf("%.2f", s.GrowthRateMBMin),
		string(s.Policy),
	})
	usage.Render()

	fmt.Fprintln(w, heading("COLLECTION RUNS", colours))
	runs := newStatusTable(w)
	runs.SetHeader([]string{"At", "Reason", "Policy", "Freed", "Duration", "Success"})
	for _, r := range lo.Reverse(s.RecentRuns) {
		runs.Append([]string{
			r.At.Format(time.TimeOnly),
			r.Reason,
			string(r.Policy),
			formatBytes(r.Freed),
			r.Duration.Round(time.Millisecond).String(),
			fmt.Sprintf("%t", r.Success),
		})
	}
	runs.Render()
	fmt.Fprintf(w, "avg freed %d KB, success rate %.0f%%\n", s.AvgFreedKB, s.GCSuccessRate*100)

	fmt.Fprintln(w, heading("LEAK REPORTS", colours))
	leaks := newStatusTable(w)
	leaks.SetHeader([]string{"At", "Resource", "Severity", "Value", "Growth/min", "Message"})
	for _, r := range lo.Reverse(s.LeakReports) {
		leaks.Append([]string{
			r.At.Format(time.TimeOnly),
			r.Resource,
			severityLabel(r.Severity, colours),
			fmt.Sprintf("%d", r.Value),
			fmt.Sprintf("%.2f", r.GrowthPerMin),
			r.Message,
		})
	}
	leaks.Render()

	fmt.Fprintln(w, heading("RESOURCES", colours))
	resources := newStatusTable(w)
	resources.SetHeader([]string{"Timers", "Subscribers", "Bytes Saved", "Last Cleanup", "Last Optimize"})
	resources.Append([]string{
		fmt.Sprintf("%d", s.TimerOutstanding),
		fmt.Sprintf("%d", s.Subscribers),
		formatBytes(uint64(s.TotalBytesSaved)),
		formatWhen(s.LastCleanup.At),
		formatWhen(s.LastOptimizeRun),
	})
	resources.Render()

	if len(s.TimersByName) > 0 {
		timers := newStatusTable(w)
		timers.SetHeader([]string{"Timer", "Outstanding"})
		names := lo.Keys(s.TimersByName)
		sort.Strings(names)
		for _, name := range names {
			timers.Append([]string{name, fmt.Sprintf("%d", s.TimersByName[name])})
		}
		timers.Render()
	}
}

func newStatusTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func heading(title string, colours bool) string {
	header := fmt.Sprintf("  ====== %s ======", title)
	if colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	return header
}

func severityLabel(s Severity, colours bool) string {
	if !colours {
		return string(s)
	}
	switch s {
	case SeverityCritical, SeverityHigh:
		return color.Red.Render(string(s))
	case SeverityMedium:
		return color.Yellow.Render(string(s))
	default:
		return color.Green.Render(string(s))
	}
}

func formatBytes(b uint64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(time.TimeOnly)
}
