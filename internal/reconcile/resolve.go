package reconcile

import (
	"encoding/json"
	"math"
	"strconv"
)

// candidateID extracts a usable integer identifier from whatever the client
// submitted. New records carry no id; stale or client-local ids may be
// strings, floats, or foreign values. Anything that does not parse as a
// positive integer is "no identifier".
func candidateID(raw any) (int64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case int64:
		return v, v > 0
	case int:
		return int64(v), v > 0
	case float64:
		if v != math.Trunc(v) || v <= 0 {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		id, err := v.Int64()
		return id, err == nil && id > 0
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		return id, err == nil && id > 0
	default:
		return 0, false
	}
}

// resolveOrCreate matches a submitted identifier against the rows owned by
// the current scope. An id that is malformed, foreign, or from another
// scope falls through to "create new" rather than erroring, so temporary
// client identifiers never fail a save.
func resolveOrCreate[T any](raw any, owned map[int64]*T) (*T, bool) {
	id, ok := candidateID(raw)
	if !ok {
		return nil, false
	}
	row, ok := owned[id]
	if !ok {
		return nil, false
	}
	return row, true
}
