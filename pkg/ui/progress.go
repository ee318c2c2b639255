package ui

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Progress prints one line per photo as a run proceeds
type Progress struct {
	console *Console
}

// NewProgress creates a progress printer on console
func NewProgress(console *Console) *Progress {
	return &Progress{console: console}
}

// Start announces the run
func (p *Progress) Start(query string, target int, outputDir string) {
	p.console.PrintInfo("Query", query)
	p.console.PrintInfo("Target", humanize.Comma(int64(target))+" images")
	p.console.PrintInfo("Saving to", outputDir)
	p.console.PrintSuccess(fmt.Sprintf("Starting scrape for '%s'...", query))
}

// Downloaded reports a new file
func (p *Progress) Downloaded(n, target int, filename string, size int64) {
	p.console.PrintSuccess(fmt.Sprintf("[%d/%d] Downloaded: %s %s",
		n, target, filename, p.console.paint(Dim, "("+humanize.Bytes(uint64(size))+")")))
}

// Skipped reports a photo whose file already exists
func (p *Progress) Skipped(filename string) {
	p.console.PrintWarning(fmt.Sprintf("[SKIPPED] %s already exists", filename))
}

// Failed reports a photo that could not be downloaded
func (p *Progress) Failed(filename string, err error) {
	p.console.PrintError(fmt.Sprintf("[ERROR] Failed to download %s", filename), err)
}

// MissingResolution reports a photo without the requested size
func (p *Progress) MissingResolution(photoID int64, resolution string) {
	p.console.PrintDim(fmt.Sprintf("[MISSING] Photo %d has no %q image", photoID, resolution))
}

// Exhausted reports that the search ran out of results
func (p *Progress) Exhausted() {
	p.console.PrintWarning("No more photos available.")
}

// Waiting reports a pause before the next search request
func (p *Progress) Waiting(d time.Duration, reason string) {
	if d < time.Second {
		return
	}
	p.console.PrintDim(fmt.Sprintf("[WAITING] %s for %s", reason, d.Round(time.Second)))
}
