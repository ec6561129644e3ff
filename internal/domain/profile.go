package domain

import "time"

// Profile is the one-to-one personal extension of an Account.
// PK: account_id. Created at most once per account.
type Profile struct {
	AccountID      string    `json:"account_id" dynamodbav:"account_id"`
	FirstName      string    `json:"first_name" dynamodbav:"first_name"`
	LastName       string    `json:"last_name" dynamodbav:"last_name"`
	Birthday       time.Time `json:"birthday" dynamodbav:"birthday"`
	Phone          *string   `json:"phone" dynamodbav:"phone"`
	PictureURI     string    `json:"picture_uri,omitempty" dynamodbav:"picture_uri"` // opaque object reference
	PhoneConfirmed bool      `json:"phone_confirmed" dynamodbav:"phone_confirmed"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateProfileRequest struct {
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	Birthday  string  `json:"birthday"` // expected format: YYYY-MM-DD
	Phone     *string `json:"phone"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Birthday  *string `json:"birthday"` // expected format: YYYY-MM-DD
	Phone     *string `json:"phone"`
}
