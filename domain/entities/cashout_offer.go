package entities

import "time"

// CashoutOfferTTL is the validity window of an early buyout offer
const CashoutOfferTTL = 30 * time.Second

// CashoutOffer is an ephemeral early buyout quote for an unresolved wager.
// Offers live only in the session that requested them and are never
// authoritative: acceptance re-validates the wager's canonical status.
type CashoutOffer struct {
	WagerID   int64
	Amount    int64
	CreatedAt time.Time
	ExpiresAt time.Time
	Accepted  bool
}

// NewCashoutOffer creates an offer with a fixed expiry window
func NewCashoutOffer(wagerID, amount int64, now time.Time) *CashoutOffer {
	return &CashoutOffer{
		WagerID:   wagerID,
		Amount:    amount,
		CreatedAt: now,
		ExpiresAt: now.Add(CashoutOfferTTL),
	}
}

// IsExpired reports whether the offer window has closed
func (o *CashoutOffer) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// ExpiresInMs returns the remaining validity in milliseconds, floored at zero
func (o *CashoutOffer) ExpiresInMs(now time.Time) int64 {
	remaining := o.ExpiresAt.Sub(now).Milliseconds()
	if remaining < 0 {
		return 0
	}
	return remaining
}
