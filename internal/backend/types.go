package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Roles reported by auth/me.
const (
	RoleUser     = "user"
	RoleReseller = "reseller"
	RoleAdmin    = "admin"
)

// Amount decodes numbers that Laravel may send as JSON numbers or strings.
type Amount float64

// UnmarshalJSON accepts 12, 12.5, "12.50" and null.
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*a = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		*a = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("amount %q: %w", s, err)
	}
	*a = Amount(f)
	return nil
}

// Int64 rounds to the nearest whole unit.
func (a Amount) Int64() int64 { return int64(math.Round(float64(a))) }

// Plan is one catalog entry. Prices are in toman.
type Plan struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	DurationDays int    `json:"duration_days"`
	TrafficBytes int64  `json:"traffic_bytes"`
	PriceBase    Amount `json:"price_base"`
}

// Location is a server location a subscription can be placed in.
type Location struct {
	Tag   string `json:"tag"`
	Emoji string `json:"emoji"`
}

// Server is the node a subscription currently lives on.
type Server struct {
	Name      string `json:"name"`
	FlagEmoji string `json:"flag_emoji"`
}

// Subscription is one VPN service of a user.
type Subscription struct {
	ID           int64   `json:"id"`
	UserID       int64   `json:"user_id"`
	UUID         string  `json:"uuid"`
	Status       string  `json:"status"`
	TotalTraffic int64   `json:"total_traffic"`
	UsedTraffic  int64   `json:"used_traffic"`
	ExpireDate   string  `json:"expire_date"`
	Server       *Server `json:"server"`
	Plan         *Plan   `json:"plan"`
}

// Active reports whether the subscription is usable.
func (s Subscription) Active() bool { return s.Status == "active" }

// ExpiresAt parses ExpireDate. ok is false when the date is absent or malformed.
func (s Subscription) ExpiresAt() (time.Time, bool) {
	if s.ExpireDate == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s.ExpireDate); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// rawList accepts either a bare array or {"data": [...]}.
type rawList[T any] []T

func (l *rawList[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		return json.Unmarshal(b, (*[]T)(l))
	}
	var wrapped struct {
		Data []T `json:"data"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	*l = wrapped.Data
	return nil
}

// Identity is the auth/me record.
type Identity struct {
	ID            int64  `json:"id"`
	TelegramID    int64  `json:"telegram_id"`
	Username      string `json:"username"`
	Role          string `json:"role"`
	WalletBalance Amount `json:"wallet_balance"`
}

// IsAdmin reports the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// IsReseller reports the reseller role.
func (i Identity) IsReseller() bool { return i.Role == RoleReseller }

// User is an entry of the user listings.
type User struct {
	ID         int64  `json:"id"`
	TelegramID int64  `json:"telegram_id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
}

// UserPage is one page of users.
type UserPage struct {
	Data     []User `json:"data"`
	LastPage int    `json:"last_page"`
}

// Transaction is a wallet movement. Amounts are in rial.
type Transaction struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Amount Amount `json:"amount"`
	User   *User  `json:"user"`
}

// DepositResult answers transactions/deposit.
type DepositResult struct {
	PaymentURL  string       `json:"payment_url"`
	Transaction *Transaction `json:"transaction"`
}

// DashboardStats is the admin overview.
type DashboardStats struct {
	TotalUsers          int64  `json:"total_users"`
	ActiveSubscriptions int64  `json:"active_subscriptions"`
	TodaySales          Amount `json:"today_sales"`
	MonthlySales        Amount `json:"monthly_sales"`
}

// AffiliateStats summarises referral earnings in rial.
type AffiliateStats struct {
	ReferralsCount  int64  `json:"referrals_count"`
	TotalEarnings   Amount `json:"total_earnings"`
	PendingEarnings Amount `json:"pending_earnings"`
}

// AffiliateLink is whatever affiliates/link returns; only its presence matters.
type AffiliateLink struct {
	Link string `json:"link"`
	Code string `json:"code"`
}
