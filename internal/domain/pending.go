package domain

// PendingRegistration is an unverified signup awaiting OTP confirmation.
// PK: email — the ledger holds at most one record per email at any instant.
// IssuedAt is the OTP issuance time (Unix seconds); ExpiresAt mirrors it
// shifted by the OTP window and doubles as the DynamoDB TTL attribute.
type PendingRegistration struct {
	Email        string `json:"email" dynamodbav:"email"`
	Username     string `json:"username" dynamodbav:"username"`
	PasswordHash string `json:"-" dynamodbav:"password_hash"`
	OTP          string `json:"-" dynamodbav:"otp"`
	IssuedAt     int64  `json:"issued_at" dynamodbav:"issued_at"`
	ExpiresAt    int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}
