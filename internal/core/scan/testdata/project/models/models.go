package models

// Status is the lifecycle state of an item.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)
