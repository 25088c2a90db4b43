// Package widget implements the Widget Aggregation DSL: parsing
// "WIDGET ... END" blocks into widgetDomain.Definition values, binding
// a loaded dataset into the shared formula evaluator via a
// CollectionResolver, and evaluating each computed field in isolation
// (spec.md §4.8).
package widget

import (
	"fmt"
	"regexp"
	"strings"

	metricsDomain "metricore/internal/core/domain/metrics"
	widgetDomain "metricore/internal/core/domain/widget"
)

var (
	headerLine  = regexp.MustCompile(`^WIDGET\s+"([^"]*)"$`)
	datasetLine = regexp.MustCompile(`^(\w+)\s*=\s*(\w+)(?:\s+FROM\s+\w+)?$`)
	fieldLine   = regexp.MustCompile(`^"([^"]+)":\s*(int|float)\s*=\s*(.+)$`)
)

// Parse parses a full widget source block into its Definition. Blank
// lines are ignorable; the block must end with a line consisting of
// exactly "END" (spec.md §4.8's grammar).
func Parse(src string) (*widgetDomain.Definition, error) {
	lines := strings.Split(src, "\n")

	var significant []struct {
		number int
		text   string
	}
	for i, raw := range lines {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		significant = append(significant, struct {
			number int
			text   string
		}{number: i + 1, text: trimmed})
	}
	if len(significant) == 0 {
		return nil, &metricsDomain.ParseError{Message: "widget source is empty"}
	}

	header := significant[0]
	hm := headerLine.FindStringSubmatch(header.text)
	if hm == nil {
		return nil, &metricsDomain.ParseError{Line: header.number, Message: "malformed widget header", Fragment: header.text}
	}

	if len(significant) < 2 {
		return nil, &metricsDomain.ParseError{Line: header.number, Message: "widget is missing a dataset line"}
	}
	datasetRow := significant[1]
	dm := datasetLine.FindStringSubmatch(datasetRow.text)
	if dm == nil {
		return nil, &metricsDomain.ParseError{Line: datasetRow.number, Message: "malformed dataset binding", Fragment: datasetRow.text}
	}

	body := significant[2:]
	if len(body) == 0 {
		return nil, &metricsDomain.ParseError{Line: datasetRow.number, Message: "widget has no END line"}
	}
	last := body[len(body)-1]
	if last.text != "END" {
		return nil, &metricsDomain.ParseError{Line: last.number, Message: "widget source missing trailing END"}
	}
	fieldRows := body[:len(body)-1]
	if len(fieldRows) == 0 {
		return nil, &metricsDomain.ParseError{Line: last.number, Message: "widget has no computed fields"}
	}

	fields := make([]widgetDomain.ComputedField, 0, len(fieldRows))
	seen := make(map[string]bool, len(fieldRows))
	for _, row := range fieldRows {
		fm := fieldLine.FindStringSubmatch(row.text)
		if fm == nil {
			return nil, &metricsDomain.ParseError{Line: row.number, Message: "malformed computed-field line", Fragment: row.text}
		}
		label := fm[1]
		if seen[label] {
			return nil, &metricsDomain.ParseError{Line: row.number, Message: fmt.Sprintf("duplicate field label %q", label), Fragment: row.text}
		}
		seen[label] = true
		fields = append(fields, widgetDomain.ComputedField{
			Label: label,
			Type:  widgetDomain.FieldType(fm[2]),
			Expr:  strings.TrimSpace(fm[3]),
		})
	}

	return &widgetDomain.Definition{
		Name: hm[1],
		Dataset: widgetDomain.Dataset{
			Alias:          dm[1],
			DefinitionCode: dm[2],
		},
		Fields: fields,
	}, nil
}
