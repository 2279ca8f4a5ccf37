// Package parser decodes raw device payloads into telemetry readings.
//
// Decoding is heuristic: a payload that parses as a JSON object passes its
// keys through verbatim; anything else is scanned with a set of
// case-insensitive regular expressions for common firmware line formats such
// as "Temp: 25.5, Hum: 60.2" or "voltage=3.31". A payload that matches
// nothing is dropped silently rather than treated as an error, since serial
// streams routinely interleave debug output with sensor lines.
package parser

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/c360/pulseboard/telemetry"
)

// Field extractors for plain-text firmware lines. Prefix forms like "temp",
// "temperature", "vibr", "vibration" all match; the separator is ':' or '='.
var (
	tempRe    = regexp.MustCompile(`(?i)temp[erature]*[:=]\s*([\d.]+)`)
	humRe     = regexp.MustCompile(`(?i)hum[idity]*[:=]\s*([\d.]+)`)
	presRe    = regexp.MustCompile(`(?i)pres[sure]*[:=]\s*([\d.]+)`)
	voltRe    = regexp.MustCompile(`(?i)volt[age]*[:=]\s*([\d.]+)`)
	currentRe = regexp.MustCompile(`(?i)current[:=]\s*([\d.]+)`)
	stateRe   = regexp.MustCompile(`(?i)state[:=]\s*(on|off|true|false|\d+)`)
	vibRe     = regexp.MustCompile(`(?i)vibr[ation]*[:=]\s*([\d.]+)`)
)

type numericExtractor struct {
	re    *regexp.Regexp
	field string
}

var numericExtractors = []numericExtractor{
	{tempRe, "temperature"},
	{humRe, "humidity"},
	{presRe, "pressure"},
	{voltRe, "voltage"},
	{currentRe, "current"},
	{vibRe, "vibration"},
}

// Decode turns one raw payload line into a reading stamped with the current
// time. The type hint is accepted for symmetry with the transport layer but
// does not currently alter decoding; all extractors run for every device
// type. The bool result is false when the payload yields no fields.
func Decode(raw string, typeHint telemetry.DeviceType) (telemetry.Reading, bool) {
	_ = typeHint

	line := strings.TrimSpace(raw)
	if line == "" {
		return telemetry.Reading{}, false
	}

	if fields, ok := decodeJSON(line); ok {
		return telemetry.NewReading(fields), true
	}
	if fields, ok := decodeLine(line); ok {
		return telemetry.NewReading(fields), true
	}
	return telemetry.Reading{}, false
}

// decodeJSON accepts only JSON objects. Arrays, bare numbers, and strings
// are valid JSON but carry no field names, so they fall through to the
// line extractors.
func decodeJSON(line string) (map[string]any, bool) {
	if !strings.HasPrefix(line, "{") {
		return nil, false
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return nil, false
	}
	if len(fields) == 0 {
		return nil, false
	}
	return fields, true
}

func decodeLine(line string) (map[string]any, bool) {
	fields := make(map[string]any)

	for _, ex := range numericExtractors {
		m := ex.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		fields[ex.field] = v
	}

	if m := stateRe.FindStringSubmatch(line); m != nil {
		fields["state"] = m[1]
	}

	if len(fields) == 0 {
		return nil, false
	}
	return fields, true
}
