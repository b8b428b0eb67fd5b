package view

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/m3rciful/meowbot/internal/backend"
)

const gib = 1 << 30

// printer groups thousands with commas, matching how prices are quoted.
var printer = message.NewPrinter(language.English)

// Number renders v with thousands separators.
func Number(v int64) string { return printer.Sprintf("%d", v) }

// Money renders an amount rounded to a whole unit.
func Money(a backend.Amount) string { return printer.Sprintf("%.0f", float64(a)) }

// GB renders a byte count in gibibytes with two decimals.
func GB(b int64) string { return printer.Sprintf("%.2f", float64(b)/gib) }

// PlanTraffic is the whole-GB quota of a plan or "unlimited".
func PlanTraffic(p backend.Plan) string {
	if p.TrafficBytes <= 0 {
		return "نامحدود"
	}
	return printer.Sprintf("%d GB", p.TrafficBytes/gib)
}

// RemainingDays is the number of whole days until t, or zero when t has passed.
func RemainingDays(t, now time.Time) int {
	d := t.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}
