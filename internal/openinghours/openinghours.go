// Package openinghours renders scraped day/hour data as an OSM
// opening_hours expression.
package openinghours

import (
	"strings"

	"github.com/wegman-software/poimatch-go/internal/poi"
)

// Weekdays in OSM notation, Monday first
var Weekdays = [7]string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}

const (
	nonstop      = "24/7"
	summerPrefix = "Jun-Aug "
	holidaysOff  = "PH off"
)

// Build returns the opening_hours value for oh, or "" when no day has hours
func Build(oh poi.OpeningHours) string {
	if oh.Nonstop {
		return nonstop
	}

	var regular, summer [7]string
	for i, d := range oh.Days {
		regular[i] = dayRange(d.Open, d.Close, oh.LunchBreakStart, oh.LunchBreakStop)
		summer[i] = dayRange(d.SummerOpen, d.SummerClose, oh.LunchBreakStart, oh.LunchBreakStop)
	}

	rules := group(regular, "")
	if len(rules) == 0 {
		return ""
	}
	rules = append(rules, group(summer, summerPrefix)...)
	if oh.PublicHolidayOpen != nil && !*oh.PublicHolidayOpen {
		rules = append(rules, holidaysOff)
	}
	return strings.Join(rules, "; ")
}

// dayRange renders one day, split around the lunch break when it falls inside
func dayRange(open, close, lunchStart, lunchStop string) string {
	open, close = normalize(open), normalize(close)
	if open == "" || close == "" {
		return ""
	}
	lunchStart, lunchStop = normalize(lunchStart), normalize(lunchStop)
	if lunchStart != "" && lunchStop != "" && open < lunchStart && lunchStart < lunchStop && lunchStop < close {
		return open + "-" + lunchStart + "," + lunchStop + "-" + close
	}
	return open + "-" + close
}

// group merges consecutive days with identical hours into day ranges
func group(days [7]string, prefix string) []string {
	var rules []string
	for i := 0; i < len(days); {
		if days[i] == "" {
			i++
			continue
		}
		j := i
		for j+1 < len(days) && days[j+1] == days[i] {
			j++
		}
		var span string
		switch j - i {
		case 0:
			span = Weekdays[i]
		case 1:
			span = Weekdays[i] + "," + Weekdays[j]
		default:
			span = Weekdays[i] + "-" + Weekdays[j]
		}
		rules = append(rules, prefix+span+" "+days[i])
		i = j + 1
	}
	return rules
}

// normalize pads "8:00" to "08:00" and drops seconds
func normalize(t string) string {
	t = strings.TrimSpace(t)
	if t == "" {
		return ""
	}
	if len(t) == 8 && t[5] == ':' {
		t = t[:5]
	}
	if len(t) == 4 && t[1] == ':' {
		t = "0" + t
	}
	return t
}
