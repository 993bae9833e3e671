package domain

import "time"

// Profile is an exchange-side sub-account under one API credential. The bot
// uses profiles only as transfer endpoints when skimming realized profit.
type Profile struct {
	ID     string
	Name   string
	Active bool
}

// Transfer records a completed profile-to-profile funds transfer.
type Transfer struct {
	ID        string
	CycleID   string
	From      string
	To        string
	Currency  string
	Amount    float64
	CreatedAt time.Time
}
