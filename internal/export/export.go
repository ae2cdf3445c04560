// Package export writes a comparison result as JSON, CSV, or YAML.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"dp-go/internal/dp"
)

// Format selects the export encoding. It implements pflag.Value.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
)

// Formats lists the supported formats in display order.
var Formats = []Format{FormatJSON, FormatCSV, FormatYAML}

// CSVHeader is the first row of every CSV export.
var CSVHeader = []string{"Path", "Status", "Old Size", "New Size", "Old Modified", "New Modified"}

// ParseFormat accepts a format name case-insensitively; "yml" is an alias for yaml.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want json, csv, or yaml)", s)
	}
}

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) (Format, bool) {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return "", false
	}
	f, err := ParseFormat(path[i+1:])
	return f, err == nil
}

func (f *Format) String() string { return string(*f) }

func (f *Format) Set(s string) error {
	parsed, err := ParseFormat(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

func (f *Format) Type() string { return "format" }

var _ pflag.Value = (*Format)(nil)

// Write encodes result to w in the given format.
func Write(w io.Writer, format Format, result *dp.ComparisonResult) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatCSV:
		return writeCSV(w, result)
	case FormatYAML:
		return writeYAML(w, result)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

func writeJSON(w io.Writer, result *dp.ComparisonResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(normalize(result)); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, result *dp.ComparisonResult) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(normalize(result)); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return nil
}

// writeCSV writes one row per difference. Unset fields are empty cells.
func writeCSV(w io.Writer, result *dp.ComparisonResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, d := range result.Differences {
		record := []string{
			d.Path,
			d.Status.Title(),
			formatUint(d.OldSize),
			formatUint(d.NewSize),
			formatInt(d.OldModified),
			formatInt(d.NewModified),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

func formatUint(v *uint64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatUint(*v, 10)
}

func formatInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

// normalize makes an empty difference list encode as [] rather than null.
func normalize(result *dp.ComparisonResult) *dp.ComparisonResult {
	if result.Differences != nil {
		return result
	}
	c := *result
	c.Differences = []dp.FileDifference{}
	return &c
}
