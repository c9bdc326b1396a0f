package models

import "time"

// Subscriber is a waitlist entry.
type Subscriber struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	ReceiveUpdates bool      `json:"receiveUpdates"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Space is a venue listed on the lease page.
type Space struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Price       float64 `json:"price"`
}
