// Package model defines the data structures used throughout the application.
package model

// User is an account on the remote ResourceHub API.
//
// The API embeds users inside resources, comments, and likes. Unless an
// identity endpoint is configured, those nested copies are the only Users
// the client ever sees. Email and DisplayName are usually empty on nested
// users.
type User struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// Name is how the user is shown: the display name when the server sent
// one, else the username.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
