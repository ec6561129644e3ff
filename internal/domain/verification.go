package domain

// AccountVerification stores post-signup confirmation codes (currently phone).
// PK: account_id, SK: type.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type AccountVerification struct {
	AccountID string `json:"account_id" dynamodbav:"account_id"`
	Type      string `json:"type" dynamodbav:"type"` // "phone"
	Code      string `json:"code" dynamodbav:"code"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}
