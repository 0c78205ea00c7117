package model

import "time"

const (
	TokenReasonExpired  = "expired"
	TokenReasonNotFound = "not_found"
)

// Token is a third-party access token cached under an access code
type Token struct {
	AccessCode string    `bson:"_id" json:"accessCode"`
	Value      string    `bson:"value" json:"token"`
	ExpiresAt  time.Time `bson:"expires_at" json:"expiresAt"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
}

// TokenStatus is the result of looking up a Token by its access code
type TokenStatus struct {
	Valid     bool       `json:"valid"`
	Reason    string     `json:"reason,omitempty"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}
