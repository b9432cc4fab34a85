package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/R3E-Network/mvc_bridge/internal/node"
)

// Property value kinds stored next to the JSON value so that reads restore
// the Go type that was written.
const (
	kindText     = "text"
	kindLong     = "long"
	kindULong    = "ulong"
	kindDouble   = "double"
	kindBoolean  = "boolean"
	kindDatetime = "datetime"
	kindNodeRef  = "noderef"
	kindJSON     = "json"
)

func encodeValue(v any) (string, []byte, error) {
	var (
		kind    string
		payload any
	)
	switch t := v.(type) {
	case string:
		kind, payload = kindText, t
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		kind, payload = kindLong, t
	case uint, uint64:
		kind, payload = kindULong, t
	case float32, float64:
		kind, payload = kindDouble, t
	case bool:
		kind, payload = kindBoolean, t
	case time.Time:
		kind, payload = kindDatetime, t.UTC().Format(time.RFC3339Nano)
	case node.Ref:
		kind, payload = kindNodeRef, t.String()
	default:
		kind, payload = kindJSON, t
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s value: %w", kind, err)
	}
	return kind, data, nil
}

func decodeValue(kind string, data []byte) (any, error) {
	switch kind {
	case kindText:
		var s string
		err := json.Unmarshal(data, &s)
		return s, err
	case kindLong:
		var n int64
		err := json.Unmarshal(data, &n)
		return n, err
	case kindULong:
		var n uint64
		err := json.Unmarshal(data, &n)
		return n, err
	case kindDouble:
		var f float64
		err := json.Unmarshal(data, &f)
		return f, err
	case kindBoolean:
		var b bool
		err := json.Unmarshal(data, &b)
		return b, err
	case kindDatetime:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return time.Parse(time.RFC3339Nano, s)
	case kindNodeRef:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return node.ParseRef(s)
	case kindJSON:
		var v any
		err := json.Unmarshal(data, &v)
		return v, err
	default:
		return nil, fmt.Errorf("unknown property kind %q", kind)
	}
}
