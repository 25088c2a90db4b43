// Package widget provides the ClickHouse-backed widget dataset loader
// (spec.md §4.8 step 2, §6.3's period resolution).
package widget

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	widgetDomain "metricore/internal/core/domain/widget"
)

// validDefinitionCode mirrors the teacher's validFieldNamePattern
// discipline (widget_query_builder.go): even though definitionCode
// reaches this adapter as a bound query parameter rather than an
// interpolated fragment, rejecting anything outside this shape early
// surfaces a misconfigured widget as a clear error instead of a
// zero-row ClickHouse query.
var validDefinitionCode = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Loader implements widgetDomain.Loader against a flattened, wide
// metric_entries ClickHouse table: one row per entry, with its
// attributes and (for TIM rows) time allocations held in Map columns
// rather than one column per possible field — the sparse-schema
// pattern ClickHouse favors over Postgres's narrow-table-plus-join
// shape the oracle adapter uses.
type Loader struct {
	conn clickhouse.Conn
}

func NewLoader(conn clickhouse.Conn) *Loader {
	return &Loader{conn: conn}
}

type loadedRow struct {
	ID             string
	DefinitionCode string
	Timestamp      time.Time
	Subdivision    *string
	Attributes     map[string]float64
	TimeValues     map[string]int64
}

// LoadEntriesForWidget resolves params.Period against params.AnchorDate
// (spec.md §6.3's DAY/WEEK/MONTH/YEAR table) and returns every entry of
// definitionCode for params.User falling in that half-open range.
func (l *Loader) LoadEntriesForWidget(ctx context.Context, definitionCode string, params widgetDomain.LoadParams) ([]*widgetDomain.LoadedEntry, error) {
	if !validDefinitionCode.MatchString(definitionCode) {
		return nil, fmt.Errorf("invalid definition code %q", definitionCode)
	}
	period := params.Period
	if period == "" {
		period = widgetDomain.PeriodDay
	}
	if !period.IsValid() {
		return nil, fmt.Errorf("invalid period %q", params.Period)
	}
	start, end := period.DateRange(params.AnchorDate)

	query := `
		SELECT id, definition_code, ts, subdivision, attributes, time_values
		FROM metric_entries_wide
		WHERE definition_code = ?
		  AND user = ?
		  AND ts >= ?
		  AND ts < ?
		ORDER BY ts
	`
	rows, err := l.conn.Query(ctx, query, definitionCode, params.User, start, end)
	if err != nil {
		return nil, fmt.Errorf("load widget dataset %q: %w", definitionCode, err)
	}
	defer rows.Close()

	var out []*widgetDomain.LoadedEntry
	for rows.Next() {
		var r loadedRow
		if err := rows.Scan(&r.ID, &r.DefinitionCode, &r.Timestamp, &r.Subdivision, &r.Attributes, &r.TimeValues); err != nil {
			return nil, fmt.Errorf("scan widget dataset row: %w", err)
		}
		entry := &widgetDomain.LoadedEntry{
			ID:             r.ID,
			DefinitionCode: r.DefinitionCode,
			Timestamp:      r.Timestamp,
			Subdivision:    r.Subdivision,
			Attributes:     make(map[string]any, len(r.Attributes)),
			TimeValues:     r.TimeValues,
		}
		for k, v := range r.Attributes {
			entry.Attributes[k] = v
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate widget dataset rows: %w", err)
	}
	return out, nil
}
