// config/duration.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// parseDurationFlexible reads a timeout from any config source. Go duration
// strings ("90s", "2m") and time.Duration pass through; bare numbers, typed
// or in a string, are seconds. Empty and unset values give def without an
// error. Anything unparseable or not positive gives def plus an error.
func parseDurationFlexible(raw any, def time.Duration) (time.Duration, error) {
	var d time.Duration
	switch t := raw.(type) {
	case nil, bool:
		return def, nil
	case time.Duration:
		d = t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return def, nil
		}
		if parsed, err := time.ParseDuration(s); err == nil {
			d = parsed
			break
		}
		secs, err := cast.ToFloat64E(s)
		if err != nil {
			return def, fmt.Errorf("cannot parse duration %q", s)
		}
		d = seconds(secs)
	default:
		secs, err := cast.ToFloat64E(t)
		if err != nil {
			return def, nil
		}
		d = seconds(secs)
	}
	if d <= 0 {
		return def, fmt.Errorf("duration must be >0, got %v", raw)
	}
	return d, nil
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
