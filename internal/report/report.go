// Package report renders a conversion run as a markdown document and,
// via gomarkdown, as HTML for the web surface.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/convert"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/core"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/profile"
)

// Input bundles everything the report needs about one run
type Input struct {
	SourceFile string
	InputRows  int
	Result     *convert.Result
	Profiles   []profile.ColumnProfile
}

// Markdown renders the full conversion report as a markdown document
func Markdown(in Input) string {
	var b strings.Builder

	b.WriteString("# Conversion Report\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", in.Result.RunID)
	fmt.Fprintf(&b, "- Source: `%s`\n", in.SourceFile)
	fmt.Fprintf(&b, "- Input rows: %d\n", in.InputRows)
	fmt.Fprintf(&b, "- Tasks with data: %s\n\n", formatTasks(in.Result))

	writeTemplateMatches(&b, in.Result)
	writeWarnings(&b, in.Result)
	writeTolerance(&b, in.Result)
	writeDuplicates(&b, in.Result)
	writeProfiles(&b, in.Profiles)

	return b.String()
}

// HTML renders the report as an HTML fragment
func HTML(in Input) []byte {
	md := []byte(Markdown(in))
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.ToHTML(md, p, renderer)
}

func formatTasks(res *convert.Result) string {
	if len(res.TasksWithData) == 0 {
		return "none"
	}
	parts := make([]string, len(res.TasksWithData))
	for i, t := range res.TasksWithData {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

func writeTemplateMatches(b *strings.Builder, res *convert.Result) {
	if len(res.TemplateMatches) == 0 {
		return
	}
	b.WriteString("## Template Matches\n\n")
	b.WriteString("| Column group | Template | Columns |\n")
	b.WriteString("|---|---|---|\n")
	for _, m := range res.TemplateMatches {
		task := "(unmatched)"
		if m.Task != nil {
			task = string(*m.Task)
		}
		fmt.Fprintf(b, "| %s | %s | %d |\n", m.Group, task, len(m.Columns))
	}
	b.WriteString("\n")
}

func writeWarnings(b *strings.Builder, res *convert.Result) {
	if len(res.Warnings) == 0 {
		return
	}
	b.WriteString("## Warnings\n\n")
	for _, w := range res.Warnings {
		fmt.Fprintf(b, "- %s\n", w)
	}
	b.WriteString("\n")
}

func writeTolerance(b *strings.Builder, res *convert.Result) {
	if len(res.Tolerance) == 0 {
		return
	}
	b.WriteString("## Items Accepted via Numeric Tolerance\n\n")
	tasks := make([]string, 0, len(res.Tolerance))
	for task := range res.Tolerance {
		tasks = append(tasks, string(task))
	}
	sort.Strings(tasks)
	for _, task := range tasks {
		items := res.Tolerance[core.TaskName(task)]
		fmt.Fprintf(b, "- **%s**: %s\n", task, strings.Join(items, ", "))
	}
	b.WriteString("\n")
}

func writeDuplicates(b *strings.Builder, res *convert.Result) {
	if len(res.Duplicates) == 0 {
		return
	}
	b.WriteString("## Items Defined by Multiple Templates\n\n")
	items := make([]string, 0, len(res.Duplicates))
	for item := range res.Duplicates {
		items = append(items, item)
	}
	sort.Strings(items)
	for _, item := range items {
		tasks := res.Duplicates[item]
		parts := make([]string, len(tasks))
		for i, t := range tasks {
			parts[i] = string(t)
		}
		fmt.Fprintf(b, "- `%s`: %s\n", item, strings.Join(parts, ", "))
	}
	b.WriteString("\n")
}

func writeProfiles(b *strings.Builder, profiles []profile.ColumnProfile) {
	if len(profiles) == 0 {
		return
	}
	b.WriteString("## Column Profiles\n\n")
	fmt.Fprintf(b, "Overall missing rate: %.1f%%\n\n", profile.OverallMissingRate(profiles)*100)
	b.WriteString("| Column | Rows | Missing | Unique | Mean | SD | Min | Max |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, p := range profiles {
		if p.Numeric {
			fmt.Fprintf(b, "| %s | %d | %d | %d | %.2f | %.2f | %.2f | %.2f |\n",
				p.Column, p.Rows, p.Missing, p.Unique, p.Mean, p.StdDev, p.Min, p.Max)
		} else {
			fmt.Fprintf(b, "| %s | %d | %d | %d | - | - | - | - |\n",
				p.Column, p.Rows, p.Missing, p.Unique)
		}
	}
	b.WriteString("\n")
}
