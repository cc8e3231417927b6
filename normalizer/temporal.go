package normalizer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var seasons = []string{"Winter", "Spring", "Summer", "Fall"}

var yearPattern = regexp.MustCompile(`^(19|20)\d{2}$`)

// seasonStart is the first month of each season
var seasonStart = []time.Month{time.December, time.March, time.June, time.September}

func seasonOf(m time.Month) int {
	switch {
	case m == time.December || m <= time.February:
		return 0
	case m <= time.May:
		return 1
	case m <= time.August:
		return 2
	default:
		return 3
	}
}

// CurrentSeason returns e.g. "Fall 2026", labelled with the calendar year of t
func CurrentSeason(t time.Time) string {
	return fmt.Sprintf("%s %d", seasons[seasonOf(t.Month())], t.Year())
}

// NextSeason returns the season after the current one. The year rolls over
// when the next season starts earlier in the calendar than t.
func NextSeason(t time.Time) string {
	idx := (seasonOf(t.Month()) + 1) % len(seasons)
	year := t.Year()
	if seasonStart[idx] < t.Month() {
		year++
	}
	return fmt.Sprintf("%s %d", seasons[idx], year)
}

// PreviousSeason returns the season before the current one
func PreviousSeason(t time.Time) string {
	idx := (seasonOf(t.Month()) + len(seasons) - 1) % len(seasons)
	year := t.Year()
	if seasonStart[idx] > t.Month() {
		year--
	}
	return fmt.Sprintf("%s %d", seasons[idx], year)
}

// ResolvePeriod turns a time window into a concrete season or year label
func ResolvePeriod(window string, now time.Time) string {
	w := strings.ToLower(strings.TrimSpace(window))
	switch w {
	case "", "current year", "this year":
		return strconv.Itoa(now.Year())
	case "recent", "current", "latest", "now", "today":
		return CurrentSeason(now)
	case "upcoming", "future", "next":
		return NextSeason(now)
	case "past", "previous", "last":
		return PreviousSeason(now)
	case "historical":
		return fmt.Sprintf("%d-%d", now.Year()-5, now.Year()-1)
	case "next year":
		return strconv.Itoa(now.Year() + 1)
	case "last year":
		return strconv.Itoa(now.Year() - 1)
	}
	if yearPattern.MatchString(w) {
		return w
	}
	return window
}
