package repl

import (
	"strconv"
	"strings"
	"time"

	"github.com/dohr-michael/ikigai/internal/ikerr"
)

// ParseSince parses /filter-mail's "--since <duration>" value (SUPPLEMENTED
// FEATURE 4) into a unix-seconds lower bound relative to now. Accepts
// Go-style durations ("90s", "5m", "2h") plus a bare integer read as
// seconds, since operators commonly type "--since 300" out of habit.
func ParseSince(now time.Time, value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, ikerr.New(ikerr.InvalidArg, "--since requires a duration")
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return now.Add(-time.Duration(secs) * time.Second).Unix(), nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, ikerr.Wrap(ikerr.Parse, "parse --since duration", err)
	}
	if d < 0 {
		return 0, ikerr.Newf(ikerr.InvalidArg, "--since duration %q must not be negative", value)
	}
	return now.Add(-d).Unix(), nil
}
