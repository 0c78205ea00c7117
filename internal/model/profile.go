package model

import "time"

// Profile is a registered user of the site
type Profile struct {
	ID              string    `bson:"_id" json:"id"`
	Username        string    `bson:"username" json:"username"`
	DisplayName     string    `bson:"display_name" json:"displayName"`
	Bio             string    `bson:"bio" json:"bio"`
	AvatarURL       string    `bson:"avatar_url" json:"avatarUrl"`
	PasswordHash    string    `bson:"password_hash" json:"-"`
	IsAdmin         bool      `bson:"is_admin" json:"isAdmin"`
	PreferredLocale string    `bson:"preferred_locale" json:"preferredLocale"`
	CreatedAt       time.Time `bson:"created_at" json:"createdAt"`
}

// PublicName returns the display name, or the username when none is set
func (p Profile) PublicName() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Username
}
