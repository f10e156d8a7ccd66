package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Value conversion shared by the drivers' result sets. Each backend's native
// client surfaces its own flavor of Go types; these helpers fold them onto
// the typed-getter contract. NULL converts to the zero value; IsNull is the
// way to distinguish.

// ValueToString converts a column value to a string.
func ValueToString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case int:
		return strconv.Itoa(t), nil
	case int32:
		return strconv.FormatInt(int64(t), 10), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32), nil
	case bool:
		return strconv.FormatBool(t), nil
	case time.Time:
		return t.Format(time.RFC3339Nano), nil
	}
	return fmt.Sprintf("%v", v), nil
}

// ValueToInt64 converts a column value to an int64.
func ValueToInt64(v any) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case float64:
		return int64(t), nil
	case float32:
		return int64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, valueConvErr(v, "int64")
		}
		return n, nil
	case []byte:
		return ValueToInt64(string(t))
	}
	return 0, valueConvErr(v, "int64")
}

// ValueToFloat64 converts a column value to a float64.
func ValueToFloat64(v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, valueConvErr(v, "float64")
		}
		return f, nil
	case []byte:
		return ValueToFloat64(string(t))
	}
	return 0, valueConvErr(v, "float64")
}

// ValueToBool converts a column value to a bool. Numerics are true when
// nonzero, text parses the usual spellings.
func ValueToBool(v any) (bool, error) {
	switch t := v.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	case int64:
		return t != 0, nil
	case int:
		return t != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "t", "true", "y", "yes", "on":
			return true, nil
		case "0", "f", "false", "n", "no", "off", "":
			return false, nil
		}
		return false, valueConvErr(v, "bool")
	case []byte:
		return ValueToBool(string(t))
	}
	return false, valueConvErr(v, "bool")
}

// ValueToBytes converts a column value to a fresh byte slice.
func ValueToBytes(v any) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		out := make([]byte, len(t))
		copy(out, t)
		return out, nil
	case string:
		return []byte(t), nil
	}
	return nil, valueConvErr(v, "bytes")
}

func valueConvErr(v any, want string) error {
	return NewError(CodeQueryFailed, "value %v (%T) is not convertible to %s", v, v, want)
}
