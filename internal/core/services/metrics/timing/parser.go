// Package timing implements the timing-block adapter: it turns a
// multi-line schedule ("1400-1500 t30m/thk15m5n10") into the nested
// MetricEntryInput trees the tree builder consumes. It never touches a
// ResolvedEntry or PipelineContext field beyond what it needs to
// resolve field names, mirroring the filter parser's separation of
// lexing from domain lookups in the teacher's observability package.
package timing

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	metricsDomain "metricore/internal/core/domain/metrics"
)

// lineSpec matches "HHMM-HHMM<ws>tokens" with optional "|"-delimited
// override/tag sections stripped by the caller before this regexp runs.
var lineSpec = regexp.MustCompile(`^(\d{4})-(\d{4})\s+(\S+)$`)

// tokenSpec matches one (letter/slash run)(digit run) pair within a
// timing line's token stream.
var tokenSpec = regexp.MustCompile(`^([a-zA-Z/]+)(\d+)`)

// IsTimingCapable reports whether def owns at least one field whose
// base definition is the TIM metric, the registry-selection gate from
// spec.md §4.3's "Purpose" paragraph.
func IsTimingCapable(ctx *metricsDomain.PipelineContext, def *metricsDomain.Definition) bool {
	return timFieldOf(ctx, def) != nil
}

func timFieldOf(ctx *metricsDomain.PipelineContext, def *metricsDomain.Definition) *metricsDomain.Field {
	for _, f := range ctx.FieldsByMetric[def.ID] {
		base := ctx.Definitions[f.BaseDefinitionID]
		if base != nil && base.IsMetric() && base.Code == "TIM" {
			return f
		}
	}
	return nil
}

// Selectable reports whether the registry should hand raw to this
// parser rather than the single-line adapter: more than one non-blank,
// non-comment line, and a timing-capable referenced definition.
func Selectable(ctx *metricsDomain.PipelineContext, raw string) bool {
	lines := significantLines(splitLines(raw))
	if len(lines) <= 1 {
		return false
	}
	defCode, _, ok := splitHeaderIdentity(lines[0].text)
	if !ok {
		return false
	}
	def := ctx.DefinitionByCode(defCode)
	return def != nil && def.IsMetric() && IsTimingCapable(ctx, def)
}

type rawLine struct {
	number int
	text   string
}

func splitLines(raw string) []rawLine {
	parts := strings.Split(raw, "\n")
	out := make([]rawLine, len(parts))
	for i, p := range parts {
		out[i] = rawLine{number: i + 1, text: p}
	}
	return out
}

// isCommentLine reports whether a trimmed line is a comment: this
// parser treats a leading "#" as a comment marker, consistent with the
// teacher's other line-oriented configuration formats.
func isCommentLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "#")
}

func significantLines(lines []rawLine) []rawLine {
	var out []rawLine
	for _, l := range lines {
		trimmed := strings.TrimSpace(l.text)
		if trimmed == "" || isCommentLine(trimmed) {
			continue
		}
		out = append(out, rawLine{number: l.number, text: trimmed})
	}
	return out
}

func parseErr(line int, msg, fragment string) error {
	return &metricsDomain.ParseError{Line: line, Message: msg, Fragment: fragment}
}

// splitHeaderIdentity parses the "DEF_CODE[:SUBDIV]" portion preceding
// the first ";" of the header line.
func splitHeaderIdentity(identity string) (code string, subdivision *string, ok bool) {
	semi := strings.Index(identity, ";")
	if semi >= 0 {
		identity = identity[:semi]
	}
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return "", nil, false
	}
	if colon := strings.Index(identity, ":"); colon >= 0 {
		code = identity[:colon]
		sub := identity[colon+1:]
		return code, &sub, code != ""
	}
	return identity, nil, true
}

// parsePairs parses a comma-separated "key:value,key2:value2" list into
// an ordered slice, preserving declaration order for deterministic
// field-input construction.
func parsePairs(s string) ([]pair, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []pair
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		colon := strings.Index(part, ":")
		if colon < 0 {
			return nil, fmt.Errorf("malformed key:value pair %q", part)
		}
		key := strings.TrimSpace(part[:colon])
		val := strings.TrimSpace(part[colon+1:])
		if key == "" {
			return nil, fmt.Errorf("malformed key:value pair %q", part)
		}
		out = append(out, pair{key: key, value: val})
	}
	return out, nil
}

type pair struct {
	key   string
	value string
}

// Parse transforms a timing block into one parent MetricEntryInput per
// timing line, each carrying a nested TIM sub-input. Any validation
// failure anywhere in the block rejects the whole block: no partial
// result is ever returned alongside a non-nil error.
func Parse(ctx *metricsDomain.PipelineContext, raw string) ([]*metricsDomain.MetricEntryInput, error) {
	lines := significantLines(splitLines(raw))
	if len(lines) == 0 {
		return nil, parseErr(0, "timing block is empty", "")
	}

	header := lines[0]
	defCode, subdivision, ok := splitHeaderIdentity(header.text)
	if !ok {
		return nil, parseErr(header.number, "malformed header identity", header.text)
	}
	def := ctx.DefinitionByCode(defCode)
	if def == nil || !def.IsMetric() {
		return nil, parseErr(header.number, "unknown metric definition", defCode)
	}
	timField := timFieldOf(ctx, def)
	if timField == nil {
		return nil, parseErr(header.number, "definition has no TIM-referencing field", defCode)
	}
	timDef := ctx.Definitions[timField.BaseDefinitionID]

	headerAttrs, err := headerAttributePairs(ctx, def, header)
	if err != nil {
		return nil, err
	}

	var prevEnd *int
	var results []*metricsDomain.MetricEntryInput
	for _, l := range lines[1:] {
		parent, end, err := parseTimingLine(ctx, def, timDef, timField, subdivision, headerAttrs, l, prevEnd)
		if err != nil {
			return nil, err
		}
		prevEnd = &end
		results = append(results, parent)
	}
	if len(results) == 0 {
		return nil, parseErr(header.number, "timing block has no timing lines", "")
	}
	return results, nil
}

// headerAttributePairs splits the header line into its attr_pairs
// segment and builds one FieldInput per key that names a field of def,
// skipping (rather than failing on) keys that don't.
func headerAttributePairs(ctx *metricsDomain.PipelineContext, def *metricsDomain.Definition, header rawLine) (*orderedFields, error) {
	segments := strings.SplitN(header.text, ";", 3)
	if len(segments) < 2 {
		return nil, parseErr(header.number, "header missing attr_pairs section", header.text)
	}
	pairs, err := parsePairs(segments[1])
	if err != nil {
		return nil, parseErr(header.number, err.Error(), segments[1])
	}
	out := newOrderedFields()
	for _, p := range pairs {
		field := ctx.FieldByName(def.ID, p.key)
		if field == nil {
			slog.Warn("timing block header references unknown field, skipping",
				"line", header.number, "key", p.key, "definition", def.Code)
			continue
		}
		base := ctx.Definitions[field.BaseDefinitionID]
		value, err := coerceAttributeValue(base, p.value)
		if err != nil {
			return nil, parseErr(header.number, err.Error(), p.value)
		}
		out.set(p.key, metricsDomain.FieldInput{FieldName: field.Name, Values: []metricsDomain.AttributeValueInput{value}})
	}
	return out, nil
}

// orderedFields preserves first-seen key order so header attributes and
// their line-level overrides produce a deterministic Fields slice.
type orderedFields struct {
	order []string
	byKey map[string]metricsDomain.FieldInput
}

func newOrderedFields() *orderedFields {
	return &orderedFields{byKey: make(map[string]metricsDomain.FieldInput)}
}

func (o *orderedFields) set(key string, value metricsDomain.FieldInput) {
	if _, exists := o.byKey[key]; !exists {
		o.order = append(o.order, key)
	}
	o.byKey[key] = value
}

func (o *orderedFields) clone() *orderedFields {
	out := newOrderedFields()
	out.order = append(out.order, o.order...)
	for k, v := range o.byKey {
		out.byKey[k] = v
	}
	return out
}

func (o *orderedFields) values() []metricsDomain.FieldInput {
	out := make([]metricsDomain.FieldInput, 0, len(o.order))
	for _, k := range o.order {
		out = append(out, o.byKey[k])
	}
	return out
}

func coerceAttributeValue(base *metricsDomain.Definition, raw string) (metricsDomain.AttributeValueInput, error) {
	if base == nil {
		s := raw
		return metricsDomain.AttributeValueInput{Str: &s}, nil
	}
	switch base.Datatype {
	case metricsDomain.DatatypeInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return metricsDomain.AttributeValueInput{}, fmt.Errorf("expected integer, got %q", raw)
		}
		return metricsDomain.AttributeValueInput{Int: &n}, nil
	case metricsDomain.DatatypeFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return metricsDomain.AttributeValueInput{}, fmt.Errorf("expected float, got %q", raw)
		}
		return metricsDomain.AttributeValueInput{Float: &f}, nil
	case metricsDomain.DatatypeBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return metricsDomain.AttributeValueInput{}, fmt.Errorf("expected bool, got %q", raw)
		}
		return metricsDomain.AttributeValueInput{Bool: &b}, nil
	default:
		s := raw
		return metricsDomain.AttributeValueInput{Str: &s}, nil
	}
}

// parseTimingLine parses one "HHMM-HHMM tokens[|overrides][|tags]" line
// into its parent MetricEntryInput, returning the line's time_end for
// the caller's ascending-order check on the next line.
func parseTimingLine(
	ctx *metricsDomain.PipelineContext,
	def, timDef *metricsDomain.Definition,
	timField *metricsDomain.Field,
	subdivision *string,
	headerAttrs *orderedFields,
	l rawLine,
	prevEnd *int,
) (*metricsDomain.MetricEntryInput, int, error) {
	sections := strings.Split(l.text, "|")
	spec := strings.TrimSpace(sections[0])

	m := lineSpec.FindStringSubmatch(spec)
	if m == nil {
		return nil, 0, parseErr(l.number, "malformed timing line", spec)
	}
	timeInit, timeEnd, err := parseTimeRange(m[1], m[2])
	if err != nil {
		return nil, 0, parseErr(l.number, err.Error(), spec)
	}
	duration := timeEnd - timeInit
	if duration <= 0 {
		return nil, 0, parseErr(l.number, "duration must be positive", spec)
	}
	if prevEnd != nil && timeInit < *prevEnd {
		return nil, 0, parseErr(l.number, "timing lines must be non-overlapping and ascending", spec)
	}

	tokens, err := parseTokens(m[3])
	if err != nil {
		return nil, 0, parseErr(l.number, err.Error(), m[3])
	}
	sum := 0
	for _, tok := range tokens {
		sum += tok.value
	}
	if sum > duration {
		return nil, 0, parseErr(l.number, fmt.Sprintf("token sum %d exceeds duration %d", sum, duration), m[3])
	}

	fields := headerAttrs.clone()
	if len(sections) > 1 {
		overrides, err := parsePairs(sections[1])
		if err != nil {
			return nil, 0, parseErr(l.number, err.Error(), sections[1])
		}
		for _, p := range overrides {
			field := ctx.FieldByName(def.ID, p.key)
			if field == nil {
				continue
			}
			base := ctx.Definitions[field.BaseDefinitionID]
			value, err := coerceAttributeValue(base, p.value)
			if err != nil {
				return nil, 0, parseErr(l.number, err.Error(), p.value)
			}
			fields.set(p.key, metricsDomain.FieldInput{FieldName: field.Name, Values: []metricsDomain.AttributeValueInput{value}})
		}
	}
	// sections[2], if present, is the tag_pairs section. The grammar
	// reserves it but spec.md never binds tags to a domain field, so it
	// is parsed for validation only and otherwise discarded.
	if len(sections) > 2 {
		if _, err := parsePairs(sections[2]); err != nil {
			return nil, 0, parseErr(l.number, err.Error(), sections[2])
		}
	}

	nestedFields, err := buildTimFields(ctx, timDef, timeInit, timeEnd, duration, tokens)
	if err != nil {
		return nil, 0, &metricsDomain.ParseError{Line: l.number, Message: err.Error()}
	}
	nested := &metricsDomain.MetricEntryInput{
		DefinitionCode: timDef.Code,
		Fields:         nestedFields,
	}

	out := fields.values()
	out = append(out, metricsDomain.FieldInput{
		FieldName: timField.Name,
		Values:    []metricsDomain.AttributeValueInput{{Nested: nested}},
	})

	parent := &metricsDomain.MetricEntryInput{
		DefinitionCode: def.Code,
		Subdivision:    subdivision,
		Fields:         out,
	}
	return parent, timeEnd, nil
}

func parseTimeRange(startText, endText string) (init, end int, err error) {
	init, err = parseHHMM(startText)
	if err != nil {
		return 0, 0, err
	}
	end, err = parseHHMM(endText)
	if err != nil {
		return 0, 0, err
	}
	return init, end, nil
}

// parseHHMM parses a 4-digit HHMM field. Hours may exceed 23 to encode
// next-day crossings; minutes must be below 60.
func parseHHMM(s string) (int, error) {
	hh, err := strconv.Atoi(s[:2])
	if err != nil {
		return 0, fmt.Errorf("malformed hour in %q", s)
	}
	mm, err := strconv.Atoi(s[2:])
	if err != nil {
		return 0, fmt.Errorf("malformed minute in %q", s)
	}
	if mm >= 60 {
		return 0, fmt.Errorf("minute field %q must be below 60", s)
	}
	return hh*60 + mm, nil
}

type token struct {
	label string
	value int
}

// parseTokens scans a run of (letter/slash)(digits) pairs. Repeated
// labels accumulate: their values sum rather than producing duplicate
// children.
func parseTokens(s string) ([]token, error) {
	var out []token
	index := make(map[string]int)
	rest := s
	for rest != "" {
		m := tokenSpec.FindStringSubmatch(rest)
		if m == nil {
			return nil, fmt.Errorf("malformed token at %q", rest)
		}
		label := strings.ToLower(m[1])
		value, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("malformed token value in %q", m[0])
		}
		if i, ok := index[label]; ok {
			out[i].value += value
		} else {
			index[label] = len(out)
			out = append(out, token{label: label, value: value})
		}
		rest = rest[len(m[0]):]
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one token is required")
	}
	return out, nil
}

// buildTimFields assembles the nested TIM MetricEntryInput's field
// inputs: time_init/time_end/duration when TIM names such fields, and
// a single time_type field input carrying one attribute value per
// distinct token label.
func buildTimFields(ctx *metricsDomain.PipelineContext, timDef *metricsDomain.Definition, timeInit, timeEnd, duration int, tokens []token) ([]metricsDomain.FieldInput, error) {
	var out []metricsDomain.FieldInput
	appendIntField := func(name string, v int) {
		if f := ctx.FieldByName(timDef.ID, name); f != nil {
			n := int64(v)
			out = append(out, metricsDomain.FieldInput{FieldName: f.Name, Values: []metricsDomain.AttributeValueInput{{Int: &n}}})
		}
	}
	appendIntField("time_init", timeInit)
	appendIntField("time_end", timeEnd)
	appendIntField("duration", duration)

	timeTypeField := ctx.FieldByName(timDef.ID, "time_type")
	if timeTypeField == nil {
		return nil, fmt.Errorf("TIM definition %q has no time_type field", timDef.Code)
	}
	values := make([]metricsDomain.AttributeValueInput, len(tokens))
	for i, tok := range tokens {
		v := int64(tok.value)
		label := tok.label
		values[i] = metricsDomain.AttributeValueInput{Int: &v, Subdivision: &label}
	}
	out = append(out, metricsDomain.FieldInput{FieldName: timeTypeField.Name, Values: values})
	return out, nil
}
