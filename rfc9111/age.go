package rfc9111

import (
	"net/http"
	"time"
)

// CurrentAge calculates the current_age of a stored response per
// RFC 9111 §4.2.3.
//
// requestedAt is the clock value when the request that produced the
// stored response was initiated, receivedAt the clock value when the
// response was received. A missing or malformed Date header falls back
// to receivedAt, so a freshly stored response has an apparent age of
// zero. Negative components clamp to zero.
func CurrentAge(header http.Header, requestedAt, receivedAt, now time.Time) time.Duration {
	// §  apparent_age = max(0, response_time - date_value);
	apparentAge := maxDuration(0, receivedAt.Sub(dateValue(header, receivedAt)))

	// §  response_delay = response_time - request_time;
	// §  corrected_age_value = age_value + response_delay;
	correctedAgeValue := ageValue(header) + maxDuration(0, receivedAt.Sub(requestedAt))

	// §  corrected_initial_age = max(apparent_age, corrected_age_value);
	correctedInitialAge := maxDuration(apparentAge, correctedAgeValue)

	// §  resident_time = now - response_time;
	// §  current_age = corrected_initial_age + resident_time;
	residentTime := maxDuration(0, now.Sub(receivedAt))
	return correctedInitialAge + residentTime
}

// AddAgeHeader sets the Age header of a response being served from
// storage, as required by §4 when reusing a stored response, and
// returns the age it stamped. Callers needing the age must use the
// returned value: once Age is written, recomputing from the header
// would count the corrected initial age twice.
func AddAgeHeader(header http.Header, requestedAt, receivedAt, now time.Time) time.Duration {
	age := CurrentAge(header, requestedAt, receivedAt, now)
	header.Set("Age", formatDeltaSeconds(age))
	return age
}

// ageValue is the Age header value in arithmetic form, or 0.
func ageValue(header http.Header) time.Duration {
	if secondsStr := header.Get("Age"); secondsStr != "" {
		if age, err := parseDeltaSeconds(secondsStr); err == nil {
			return age
		}
	}
	return 0
}

// dateValue is the Date header value in arithmetic form,
// falling back to the given time when missing or malformed.
func dateValue(header http.Header, fallback time.Time) time.Time {
	if dateHeader := header.Get("Date"); dateHeader != "" {
		if date, err := HTTPDate(dateHeader); err == nil {
			return date
		}
	}
	return fallback
}

func maxDuration(d1, d2 time.Duration) time.Duration {
	if d1 > d2 {
		return d1
	}
	return d2
}
