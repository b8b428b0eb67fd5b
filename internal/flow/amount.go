package flow

import (
	"math"
	"strconv"
	"strings"
)

// DefaultMinDeposit is the smallest deposit in toman.
const DefaultMinDeposit = 10000

var digitFolder = strings.NewReplacer(
	",", "", "،", "", "٬", "", " ", "", "\u200c", "",
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
)

// ParseAmount reads a whole toman amount typed by a user. Thousands
// separators and Persian or Arabic-Indic digits are accepted; anything else
// is rejected.
func ParseAmount(text string) (int64, bool) {
	s := digitFolder.Replace(strings.TrimSpace(text))
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v > math.MaxInt64/10 {
		return 0, false
	}
	return v, true
}
