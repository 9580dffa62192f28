package domain

// calendar.go — civil calendar logic, always in America/New_York.
//
// Las fechas persistidas (flag de rebalance, snapshots) son fechas civiles NY,
// nunca instantes UTC. Los holidays NO se restan aquí: los resuelve el clock
// del broker en el precondition check del supervisor.

import (
	"time"
)

// RebalanceIntervalDays es la distancia entre rebalances en días de trading.
const RebalanceIntervalDays = 22

var nyLocation = mustLoadNY()

func mustLoadNY() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic("domain: load America/New_York: " + err.Error())
	}
	return loc
}

// NowNY returns the current instant in the New York civil calendar.
func NowNY() time.Time {
	return time.Now().In(nyLocation)
}

// NYLocation exposes the shared tz handle for schedulers and parsers.
func NYLocation() *time.Location {
	return nyLocation
}

// DateNY normalizes an instant to its NY civil date (midnight, NY zone).
func DateNY(t time.Time) time.Time {
	t = t.In(nyLocation)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, nyLocation)
}

// IsWeekday reports whether t falls on Monday through Friday in NY.
func IsWeekday(t time.Time) bool {
	wd := t.In(nyLocation).Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// TradingDaysBetween counts weekdays in the open-closed interval (a, b].
// Solo calendario civil: sin holidays. Si b <= a devuelve 0.
func TradingDaysBetween(a, b time.Time) int {
	from := DateNY(a)
	to := DateNY(b)
	if !to.After(from) {
		return 0
	}
	days := 0
	for d := from.AddDate(0, 0, 1); !d.After(to); d = d.AddDate(0, 0, 1) {
		if IsWeekday(d) {
			days++
		}
	}
	return days
}

// DaysUntilRebalance returns how many trading days remain until the next
// rebalance is due, saturating at 0 (never negative).
func DaysUntilRebalance(lastRebalance, today time.Time) int {
	remaining := RebalanceIntervalDays - TradingDaysBetween(lastRebalance, today)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// MonthsBetween returns whole calendar months from a to b, decremented when
// the day-of-month in b has not yet reached the one in a. Negative if b < a.
func MonthsBetween(a, b time.Time) int {
	a = a.In(nyLocation)
	b = b.In(nyLocation)
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	}
	return months
}
