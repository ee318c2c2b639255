package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"pexelscraper/pkg/credits"
	"pexelscraper/pkg/scraper"
)

// RenderCredits prints the photographers credited in a run as a table
func RenderCredits(w io.Writer, entries []credits.Entry) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Photographer", "Profile URL"})

	for i, e := range entries {
		url := e.ProfileURL
		if url == "" {
			url = "-"
		}
		t.AppendRow(table.Row{i + 1, e.Photographer, url})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}

// PrintSummary prints the outcome of a run. It is shown even in quiet mode.
func PrintSummary(c *Console, s *scraper.Summary) {
	if s == nil {
		return
	}

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, c.paint(Bold, "Run summary"))
	c.summaryLine("Query", s.Query)
	c.summaryLine("Downloaded", fmt.Sprintf("%d/%d (%s)", s.Downloaded, s.Target, humanize.Bytes(uint64(s.Bytes))))
	c.summaryLine("Skipped", humanize.Comma(int64(s.Skipped)))
	c.summaryLine("Failed", humanize.Comma(int64(s.Failed)))
	if s.MissingResolution > 0 {
		c.summaryLine("Missing resolution", humanize.Comma(int64(s.MissingResolution)))
	}
	c.summaryLine("Pages", humanize.Comma(int64(s.Pages)))
	c.summaryLine("Stopped", describeReason(s.Reason))
	c.summaryLine("Duration", s.Duration.Round(time.Millisecond).String())
	if s.Bytes > 0 && s.Duration > 0 {
		c.summaryLine("Throughput", throughput(s.Bytes, s.Duration))
	}
	if s.CSVPath != "" {
		c.summaryLine("Credits", s.CSVPath)
	}
	if s.MetadataPath != "" {
		c.summaryLine("Metadata", s.MetadataPath)
	}

	if len(s.Credits) > 0 && !c.quiet {
		fmt.Fprintln(c.out)
		RenderCredits(c.out, s.Credits)
	}
}

func (c *Console) summaryLine(label, value string) {
	fmt.Fprintf(c.out, "  %-20s %s\n", c.paint(Cyan, label+":"), value)
}

// throughput formats the average rate of n bytes over d
func throughput(n int64, d time.Duration) string {
	return humanize.Bytes(uint64(float64(n)/d.Seconds())) + "/s"
}

func describeReason(r scraper.StopReason) string {
	switch r {
	case scraper.ReasonTargetReached:
		return "target reached"
	case scraper.ReasonExhausted:
		return "no more results"
	case scraper.ReasonCancelled:
		return "interrupted"
	case scraper.ReasonSearchFailed:
		return "search request failed"
	default:
		return string(r)
	}
}
