package domain

import "time"

// Account is a verified, durable identity. Accounts are created exclusively
// by a successful OTP verification; email and username never change afterward.
type Account struct {
	AccountID    string    `json:"id" dynamodbav:"account_id"`
	Email        string    `json:"email" dynamodbav:"email"`
	Username     string    `json:"username" dynamodbav:"username"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	Active       bool      `json:"active" dynamodbav:"active"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}
