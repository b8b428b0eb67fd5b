package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Deposit gateways.
const (
	GatewayZibal      = "zibal"
	GatewayCardToCard = "card_to_card"
)

// RegisterRequest is the body of auth/register. Zero fields are omitted.
type RegisterRequest struct {
	TelegramID int64  `json:"telegram_id"`
	Username   string `json:"username,omitempty"`
	ParentID   int64  `json:"parent_id,omitempty"`
}

// Register registers or logs in a chat user and returns a fresh token.
func (c *Client) Register(ctx context.Context, in RegisterRequest) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.postJSON(ctx, "auth/register", "", in, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("backend: auth/register: %w", errEmptyToken)
	}
	return out.Token, nil
}

// Me returns the identity behind token.
func (c *Client) Me(ctx context.Context, token string) (Identity, error) {
	var raw struct {
		Identity
		User *Identity `json:"user"`
	}
	if err := c.getJSON(ctx, "auth/me", token, nil, &raw); err != nil {
		return Identity{}, err
	}
	if raw.ID == 0 && raw.User != nil {
		return *raw.User, nil
	}
	return raw.Identity, nil
}

// Plans lists the catalog. A {"data": [...]} envelope is accepted too.
func (c *Client) Plans(ctx context.Context, token string) ([]Plan, error) {
	var raw rawList[Plan]
	if err := c.getJSON(ctx, "plans", token, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// AvailableServers lists locations that can take a new subscription.
func (c *Client) AvailableServers(ctx context.Context, token string) ([]Location, error) {
	var out struct {
		Locations []Location `json:"locations"`
	}
	if err := c.getJSON(ctx, "servers/available", token, nil, &out); err != nil {
		return nil, err
	}
	return out.Locations, nil
}

// CreateSubscription buys planID at location tag.
func (c *Client) CreateSubscription(ctx context.Context, token string, planID int64, tag string) (Subscription, error) {
	in := struct {
		PlanID      int64  `json:"plan_id"`
		LocationTag string `json:"location_tag"`
	}{planID, tag}
	var out Subscription
	err := c.postJSON(ctx, "subscriptions", token, in, &out)
	return out, err
}

// Subscriptions lists the caller's subscriptions.
func (c *Client) Subscriptions(ctx context.Context, token string) ([]Subscription, error) {
	var out rawList[Subscription]
	if err := c.getJSON(ctx, "subscriptions", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Subscription fetches one subscription.
func (c *Client) Subscription(ctx context.Context, token string, subID int64) (Subscription, error) {
	var out Subscription
	err := c.getJSON(ctx, "subscriptions/"+id(subID), token, nil, &out)
	return out, err
}

// RenewSubscription extends a subscription with its current plan.
func (c *Client) RenewSubscription(ctx context.Context, token string, subID int64) error {
	return c.postJSON(ctx, "subscriptions/"+id(subID)+"/renew", token, nil, nil)
}

// ChangeLocation moves a subscription to another location.
func (c *Client) ChangeLocation(ctx context.Context, token string, subID int64, tag string) error {
	in := struct {
		LocationTag string `json:"location_tag"`
	}{tag}
	return c.postJSON(ctx, "subscriptions/"+id(subID)+"/change-location", token, in, nil)
}

// Deposit opens an online deposit. Amount is in rial.
func (c *Client) Deposit(ctx context.Context, token string, amountRials int64, gateway string) (DepositResult, error) {
	in := struct {
		Amount  int64  `json:"amount"`
		Gateway string `json:"gateway"`
	}{amountRials, gateway}
	var out DepositResult
	err := c.postJSON(ctx, "transactions/deposit", token, in, &out)
	return out, err
}

// DepositWithProof files a manual transfer together with the receipt image.
func (c *Client) DepositWithProof(ctx context.Context, token string, amountRials int64, image []byte) (DepositResult, error) {
	body, ctype, err := multipartBody(amountRials, image)
	if err != nil {
		return DepositResult{}, fmt.Errorf("backend: encode deposit form: %w", err)
	}
	var out DepositResult
	err = c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: "transactions/deposit",
		token:    token,
		body:     body,
		ctype:    ctype,
	}, &out)
	return out, err
}

// Transactions lists the caller's transactions.
func (c *Client) Transactions(ctx context.Context, token string) ([]Transaction, error) {
	var out rawList[Transaction]
	if err := c.getJSON(ctx, "transactions", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PendingTransactions lists transactions awaiting review.
func (c *Client) PendingTransactions(ctx context.Context, token string) ([]Transaction, error) {
	var out rawList[Transaction]
	if err := c.getJSON(ctx, "transactions/pending", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ApproveTransaction approves a pending transaction.
func (c *Client) ApproveTransaction(ctx context.Context, token string, txID int64) error {
	return c.postJSON(ctx, "transactions/"+id(txID)+"/approve", token, nil, nil)
}

// RejectTransaction rejects a pending transaction.
func (c *Client) RejectTransaction(ctx context.Context, token string, txID int64) error {
	return c.postJSON(ctx, "transactions/"+id(txID)+"/reject", token, nil, nil)
}

// UserQuery selects one page of users.
type UserQuery struct {
	Page    int
	PerPage int
	Role    string
}

// Users lists users that have a chat identity.
func (c *Client) Users(ctx context.Context, token string, q UserQuery) (UserPage, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PerPage <= 0 {
		q.PerPage = 100
	}
	v := url.Values{}
	v.Set("has_telegram", "1")
	v.Set("per_page", strconv.Itoa(q.PerPage))
	v.Set("page", strconv.Itoa(q.Page))
	if q.Role != "" {
		v.Set("role", q.Role)
	}
	var out UserPage
	err := c.getJSON(ctx, "users", token, v, &out)
	return out, err
}

// ResellerUsers lists the sub-users of a reseller.
func (c *Client) ResellerUsers(ctx context.Context, token string, resellerID int64) ([]User, error) {
	var out rawList[User]
	if err := c.getJSON(ctx, "resellers/"+id(resellerID)+"/users", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AffiliateLink fetches the caller's affiliate link record.
func (c *Client) AffiliateLink(ctx context.Context, token string) (AffiliateLink, error) {
	var out AffiliateLink
	err := c.getJSON(ctx, "affiliates/link", token, nil, &out)
	return out, err
}

// AffiliateStats fetches the caller's referral earnings.
func (c *Client) AffiliateStats(ctx context.Context, token string) (AffiliateStats, error) {
	var out AffiliateStats
	err := c.getJSON(ctx, "affiliates/stats", token, nil, &out)
	return out, err
}

// DashboardStats fetches the admin overview.
func (c *Client) DashboardStats(ctx context.Context, token string) (DashboardStats, error) {
	var out DashboardStats
	err := c.getJSON(ctx, "dashboard/stats", token, nil, &out)
	return out, err
}
