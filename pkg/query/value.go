package query

import (
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// Value returns the string form used to store a filter value.
// Numbers, booleans, byte slices and fmt.Stringer values (uuid.UUID among
// them) go through cast; times are formatted as RFC 3339 so PostgREST can
// compare them against timestamptz columns.
func Value(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case *time.Time:
		if t == nil {
			return "null"
		}
		return t.Format(time.RFC3339Nano)
	case nil:
		return "null"
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}
