package rfc9111

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// §  A recipient parsing a delta-seconds value [...] greater than the
// §  greatest integer it can represent [...] MUST consider the value
// §  to be 2147483648 (2^31) or the greatest positive integer it can
// §  conveniently represent.
const maxDeltaSeconds = time.Duration(1<<31) * time.Second

// parseDeltaSeconds parses a delta-seconds value (1*DIGIT).
// Values that overflow clamp to maxDeltaSeconds.
func parseDeltaSeconds(s string) (time.Duration, error) {
	seconds, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return maxDeltaSeconds, nil
		}
		return 0, err
	}
	if seconds > uint64(maxDeltaSeconds/time.Second) {
		return maxDeltaSeconds, nil
	}
	return time.Duration(seconds) * time.Second, nil
}

// formatDeltaSeconds renders a duration as delta-seconds,
// truncating sub-second precision.
func formatDeltaSeconds(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return strconv.FormatInt(int64(d/time.Second), 10)
}

const imfFixdateLayout = "Mon, 02 Jan 2006 15:04:05 MST"

// HTTPDate parses an HTTP-date field value.
// The preferred IMF-fixdate form is tried first, then the obsolete
// RFC 850 and ANSI C forms. Dates in a zone other than GMT are invalid
// for expiration calculation and return an error.
func HTTPDate(dateStr string) (time.Time, error) {
	date, err := time.Parse(imfFixdateLayout, dateStr)
	if err != nil {
		if obs, obsErr := obsDate(dateStr); obsErr == nil {
			return obs, nil
		}
		return time.Time{}, err
	}
	if zone, _ := date.Zone(); zone != "GMT" {
		return time.Time{}, fmt.Errorf("http-date %q not in GMT", dateStr)
	}
	return date, nil
}

func obsDate(dateStr string) (time.Time, error) {
	str := strings.TrimSpace(dateStr)
	if date, err := time.Parse(time.RFC850, str); err == nil {
		return date, nil
	}
	return time.Parse(time.ANSIC, str)
}
