// Package model defines the forum's records and the read projections built
// from them.
package model

import "time"

// User represents a registered forum member.
//
// Google is the identity provider, so the external identifier is the Google
// "sub" claim (a decimal string). We still generate our own internal string
// ID (xid) so that our primary keys are not tied to a third party's scheme.
//
// GoogleID and Email are both UNIQUE in the store. Bio, Location and
// Education are owned by the user and never overwritten by a login.
type User struct {
	ID        string    `json:"id"`
	GoogleID  string    `json:"googleId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Picture   string    `json:"picture"` // URL or inline data URL, may be empty
	Bio       string    `json:"bio"`
	Location  string    `json:"location"`
	Education string    `json:"education"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Author is the display subset of a User that is embedded in question and
// answer listings.
type Author struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// ProfileUpdate is an explicit partial update of a user's profile.
//
// A nil field means "not supplied, leave unchanged". A non-nil pointer to ""
// means "set to empty". With plain strings the two cases are
// indistinguishable and an omitted field would silently clear the column.
type ProfileUpdate struct {
	Name      *string `json:"name,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	Location  *string `json:"location,omitempty"`
	Education *string `json:"education,omitempty"`
	Picture   *string `json:"picture,omitempty"`
}

// IsEmpty reports whether no field is present.
func (u ProfileUpdate) IsEmpty() bool {
	return u.Name == nil && u.Bio == nil && u.Location == nil &&
		u.Education == nil && u.Picture == nil
}
