package models

import "time"

// User is the identity record owned by the user storage. Auth only reads it.
type User struct {
	UserNo       int64     `db:"user_no" json:"userNo"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Nickname     string    `db:"nickname" json:"nickname"`
	IsBanned     bool      `db:"is_banned" json:"isBanned"`
	IsDeleted    bool      `db:"is_deleted" json:"isDeleted"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Active reports whether the user may hold a session.
func (u *User) Active() bool {
	return u != nil && !u.IsBanned && !u.IsDeleted
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	UserNo   int64  `json:"userNo"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

// Info projects the public fields of a user.
func (u *User) Info() UserInfo {
	return UserInfo{UserNo: u.UserNo, Email: u.Email, Nickname: u.Nickname}
}
