// Package report renders a finished flow run's Summary rows to the
// run's log directory as markdown and HTML, alongside the plain-text
// Summary the Logger already wrote to the console/file sinks. It is pure
// presentation over data the core already computed: it never re-runs or
// reinterprets an ExecutionResult.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/harrison/flowctl/internal/executor"
	"github.com/harrison/flowctl/internal/flow"
)

const nameTruncateAt = 60

// converter renders the summary markdown to HTML. The table extension is
// required: plain goldmark treats a pipe table as a paragraph.
var converter = goldmark.New(goldmark.WithExtensions(extension.Table))

// Write renders results as a markdown table at {logDir}/summary.md, then
// converts that markdown to an HTML fragment with goldmark and writes
// {logDir}/summary.html. Both writes use 0644 permissions.
func Write(logDir string, results []executor.TaskResult) error {
	md := Markdown(results)

	mdPath := filepath.Join(logDir, "summary.md")
	if err := os.WriteFile(mdPath, []byte(md), 0644); err != nil {
		return fmt.Errorf("write %s: %w", mdPath, err)
	}

	var html bytes.Buffer
	if err := converter.Convert([]byte(md), &html); err != nil {
		return fmt.Errorf("render summary html: %w", err)
	}

	htmlPath := filepath.Join(logDir, "summary.html")
	if err := os.WriteFile(htmlPath, html.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", htmlPath, err)
	}
	return nil
}

// Markdown renders the same icon/label/duration rows the Logger's
// Summary action prints, as a GitHub-flavored markdown table.
func Markdown(results []executor.TaskResult) string {
	var b strings.Builder
	b.WriteString("| Task | Action | Time (s) |\n")
	b.WriteString("| --- | --- | --- |\n")
	for i, r := range results {
		name := truncateName(r.Name, nameTruncateAt)
		action := actionIcon(i+1, r.Result)
		seconds := 0.0
		if r.Result.Duration != nil {
			seconds = r.Result.Duration.Seconds()
		}
		fmt.Fprintf(&b, "| %s | %s | %.2f |\n", name, action, seconds)
	}
	return b.String()
}

// actionIcon mirrors logger.actionIcon's mapping: success renders the
// task's row number, an aborted task the skip glyph, any other failure
// the failure glyph.
func actionIcon(number int, r flow.ExecutionResult) string {
	switch {
	case r.Aborted:
		return "⛔"
	case !r.IsSuccess():
		return "💥"
	default:
		return fmt.Sprintf("%d", number)
	}
}

func truncateName(name string, max int) string {
	if len(name) <= max {
		return name
	}
	return name[:max]
}
