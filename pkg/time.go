package pkg

import (
	"strconv"
	"strings"
	"time"
)

// timeUnit holds information for a single unit of time.
type timeUnit struct {
	Name      string
	ShortName string
	Value     time.Duration
}

// Pre-defined time units from largest to smallest for formatting logic.
var units = []timeUnit{
	{Name: "day", ShortName: "d", Value: 24 * time.Hour},
	{Name: "hour", ShortName: "h", Value: time.Hour},
	{Name: "minute", ShortName: "m", Value: time.Minute},
	{Name: "second", ShortName: "s", Value: time.Second},
	{Name: "millisecond", ShortName: "ms", Value: time.Millisecond},
	{Name: "microsecond", ShortName: "μs", Value: time.Microsecond},
	{Name: "nanosecond", ShortName: "ns", Value: time.Nanosecond},
}

// SmartDurationFormat renders a duration compactly for access logs: sub-second
// values pick the largest fitting unit, longer values show up to two units.
func SmartDurationFormat(d time.Duration) string {
	if d == 0 {
		return "0"
	}

	if d < time.Second {
		if d >= time.Millisecond {
			return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
		}
		if d >= time.Microsecond {
			return strconv.FormatInt(d.Microseconds(), 10) + "μs"
		}
		return strconv.FormatInt(d.Nanoseconds(), 10) + "ns"
	}

	var builder strings.Builder
	remaining := d
	parts := 0

	for _, unit := range units {
		if remaining < unit.Value {
			continue
		}
		count := remaining / unit.Value
		builder.WriteString(strconv.FormatInt(int64(count), 10))
		builder.WriteString(unit.ShortName)
		remaining %= unit.Value
		parts++
		if parts == 2 || remaining == 0 {
			break
		}
	}

	return builder.String()
}
