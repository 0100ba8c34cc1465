package model

import "time"

// Account is one independent seller account on the marketplace.
// Credentials live with the external marketplace client, not here.
type Account struct {
	CreatedAt time.Time
	ID        string
	Capacity  int // max new listings per run, 0 = unlimited
	IsActive  bool
}
