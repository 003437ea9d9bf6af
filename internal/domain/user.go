package domain

import "time"

// User represents a registered user of the system. Username is the natural
// key and is never reused.
type User struct {
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	JoinAt       time.Time
	LastLoginAt  *time.Time
}

// Profile is the non-secret subset of a user record embedded in message
// responses.
type Profile struct {
	Username  string
	FirstName string
	LastName  string
	Phone     string
}

// Profile strips the credential and timestamps from a user record.
func (u *User) Profile() Profile {
	return Profile{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
	}
}
