package domain

import "time"

// Message is a direct message between two users. ReadAt is nil until the
// recipient marks the message read; once set it never moves backward.
type Message struct {
	ID           int64
	FromUsername string
	ToUsername   string
	Body         string
	SentAt       time.Time
	ReadAt       *time.Time
}

// MessageWithParties is a message joined with both parties' profiles.
type MessageWithParties struct {
	Message
	FromUser Profile
	ToUser   Profile
}

// SentMessage is a message annotated with the recipient's profile, as seen
// from the sender's side.
type SentMessage struct {
	Message
	ToUser Profile
}

// ReceivedMessage is a message annotated with the sender's profile, as seen
// from the recipient's side.
type ReceivedMessage struct {
	Message
	FromUser Profile
}
