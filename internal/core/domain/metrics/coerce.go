package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot coerce %q to int: %w", v, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot coerce %T to int", raw)
	}
}

func toFloat64(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case string:
		// Route through decimal.Decimal rather than strconv.ParseFloat so
		// a formula-written value like "0.1" round-trips exactly instead
		// of picking up binary-float drift before it's stored.
		d, err := decimal.NewFromString(v)
		if err != nil {
			return 0, fmt.Errorf("cannot coerce %q to float: %w", v, err)
		}
		f, _ := d.Float64()
		return f, nil
	default:
		return 0, fmt.Errorf("cannot coerce %T to float", raw)
	}
}

func toString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

func toBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("cannot coerce %q to bool: %w", v, err)
		}
		return b, nil
	default:
		return false, fmt.Errorf("cannot coerce %T to bool", raw)
	}
}

func toTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("cannot coerce %q to timestamp: %w", v, err)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("cannot coerce %T to timestamp", raw)
	}
}

// StartOfDay normalizes t to local midnight, matching spec.md §3's
// "timestamp (always normalized to start-of-day)".
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
