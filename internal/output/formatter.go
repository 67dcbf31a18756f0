// Package output renders sync results for the command line.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/pipeline"
)

// Format types for output.
type Format string

const (
	// FormatText prints one summary line per stage.
	FormatText Format = "text"
	// FormatTable represents table output format.
	FormatTable Format = "table"
	// FormatJSON represents JSON output format.
	FormatJSON Format = "json"
	// FormatYAML represents YAML output format.
	FormatYAML Format = "yaml"
)

// Formatter renders a run result.
type Formatter interface {
	Format(w io.Writer, res *pipeline.Result) error
}

// FormatterFunc allows functions to implement Formatter.
type FormatterFunc func(io.Writer, *pipeline.Result) error

// Format implements the Formatter interface.
func (f FormatterFunc) Format(w io.Writer, res *pipeline.Result) error {
	return f(w, res)
}

// NewFormatter creates appropriate formatter based on format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: "  "}
	case FormatYAML:
		return &YAMLFormatter{}
	case FormatTable:
		return &TableFormatter{}
	default:
		return FormatterFunc(formatText)
	}
}

// ParseFormat converts string to Format with validation. Empty means text.
func ParseFormat(s string) (Format, error) {
	format := Format(strings.ToLower(strings.TrimSpace(s)))
	switch format {
	case "":
		return FormatText, nil
	case FormatText, FormatTable, FormatJSON, FormatYAML:
		return format, nil
	default:
		return "", errors.NewValidationError("format", s, "must be one of: text, table, json, yaml")
	}
}

// JSONFormatter outputs JSON format.
type JSONFormatter struct {
	Indent string
}

// Format implements the Formatter interface for JSON output.
func (f *JSONFormatter) Format(w io.Writer, res *pipeline.Result) error {
	encoder := json.NewEncoder(w)
	if f.Indent != "" {
		encoder.SetIndent("", f.Indent)
	}
	return encoder.Encode(res)
}

// YAMLFormatter outputs YAML format.
type YAMLFormatter struct{}

// Format outputs data in YAML format.
func (f *YAMLFormatter) Format(w io.Writer, res *pipeline.Result) error {
	yamlData, err := yaml.MarshalWithOptions(res,
		yaml.Indent(2),
		yaml.IndentSequence(false),
	)
	if err != nil {
		return err
	}
	_, err = w.Write(yamlData)
	return err
}

// StageLine is the text summary of one stage.
func StageLine(s pipeline.StageResult) string {
	verb := "synced"
	if s.DryRun {
		verb = "planned"
	}
	return fmt.Sprintf("%s: %s %d upserted (%d matched, %d new), %d deleted, %d skipped in %s",
		s.Stage, verb, s.Upserted, s.Matched, s.Inserted, s.Deleted, s.Skipped, round(s.Duration))
}

func formatText(w io.Writer, res *pipeline.Result) error {
	for _, s := range res.Stages {
		if _, err := fmt.Fprintln(w, StageLine(s)); err != nil {
			return err
		}
	}
	if res.State == pipeline.StateFailed {
		_, err := fmt.Fprintf(w, "%s: failed: %s\n", res.FailedStage, res.Error)
		return err
	}
	return nil
}

// TableFormatter outputs table format.
type TableFormatter struct{}

var columns = []string{"stage", "record_type", "upserted", "matched", "inserted", "deleted", "skipped", "duration"}

// Format outputs one row per stage and a totals footer.
func (f *TableFormatter) Format(w io.Writer, res *pipeline.Result) error {
	caser := cases.Title(language.English)
	headers := make([]any, len(columns))
	for i, c := range columns {
		headers[i] = caser.String(strings.ReplaceAll(c, "_", " "))
	}

	align := make([]tw.Align, len(columns))
	for i := range align {
		align[i] = tw.AlignRight
	}
	align[0], align[1] = tw.AlignLeft, tw.AlignLeft

	config := tablewriter.Config{}
	config.Row.Alignment = tw.CellAlignment{PerColumn: align}
	table := tablewriter.NewTable(w, tablewriter.WithConfig(config))
	table.Header(headers...)

	for _, s := range res.Stages {
		if err := table.Append(row(s)...); err != nil {
			return err
		}
	}
	if res.State == pipeline.StateFailed {
		if err := table.Append(res.FailedStage, "failed", "", "", "", "", "", ""); err != nil {
			return err
		}
	}

	totals := res.Totals()
	totals.Stage = "total"
	table.Footer(row(totals)...)
	return table.Render()
}

func row(s pipeline.StageResult) []any {
	return []any{
		s.Stage,
		s.Type,
		fmt.Sprint(s.Upserted),
		fmt.Sprint(s.Matched),
		fmt.Sprint(s.Inserted),
		fmt.Sprint(s.Deleted),
		fmt.Sprint(s.Skipped),
		round(s.Duration).String(),
	}
}

func round(d time.Duration) time.Duration {
	if d < time.Second {
		return d.Round(time.Millisecond)
	}
	return d.Round(10 * time.Millisecond)
}
