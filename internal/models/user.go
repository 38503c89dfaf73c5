package models

import "time"

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Avatar       string    `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicUser is the profile other users may see.
type PublicUser struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

func (u *User) Public() *PublicUser {
	return &PublicUser{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
}

type SignUpInput struct {
	Name     string
	Email    string
	Password string
}

type UpdateUserInput struct {
	Name   *string
	Avatar *string
}

// AuthResult is returned by sign-up and sign-in.
type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
