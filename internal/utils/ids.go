package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseID coerces an id arriving as JSON number, Go integer or text
// ("12", " #12 ") into int64. ok=false means the value was absent.
// A present but non-numeric value returns an error so the caller can try
// another lookup (vehicle code, driver name).
func ParseID(v any) (id int64, ok bool, err error) {
	switch val := v.(type) {
	case nil:
		return 0, false, nil
	case int:
		return int64(val), val != 0, nil
	case int32:
		return int64(val), val != 0, nil
	case int64:
		return val, val != 0, nil
	case uint64:
		if val > math.MaxInt64 {
			return 0, true, fmt.Errorf("id out of range")
		}
		return int64(val), val != 0, nil
	case float64:
		if val != math.Trunc(val) || val < 0 || val > math.MaxInt64 {
			return 0, true, fmt.Errorf("id must be a whole number, got %v", val)
		}
		return int64(val), val != 0, nil
	case json.Number:
		n, err := strconv.ParseInt(val.String(), 10, 64)
		if err != nil {
			return 0, true, fmt.Errorf("invalid id %q", val.String())
		}
		return n, n != 0, nil
	case string:
		s := strings.TrimPrefix(strings.TrimSpace(val), "#")
		if s == "" {
			return 0, false, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, true, fmt.Errorf("invalid id %q", val)
		}
		return n, n != 0, nil
	}
	return 0, true, fmt.Errorf("unsupported id type %T", v)
}

// ParseBool coerces flags arriving as bool, number or text.
func ParseBool(v any) (value bool, ok bool) {
	switch val := v.(type) {
	case nil:
		return false, false
	case bool:
		return val, true
	case float64:
		return val != 0, true
	case int:
		return val != 0, true
	case int64:
		return val != 0, true
	case json.Number:
		f, err := val.Float64()
		return err == nil && f != 0, err == nil
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "yes", "y", "1", "on", "ya":
			return true, true
		case "false", "no", "n", "0", "off", "tidak", "":
			return false, true
		}
	}
	return false, false
}
