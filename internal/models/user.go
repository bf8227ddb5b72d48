// internal/models/user.go
package models

import "time"

// Role 用户角色
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// UserStatus 账号状态
type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserDisabled UserStatus = "disabled"
)

// User 用户信息
type User struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	Name              string     `json:"name"`
	PasswordHash      string     `json:"password_hash,omitempty"`
	Role              Role       `json:"role"`
	Status            UserStatus `json:"status"`
	PreferredLanguage Language   `json:"preferred_language"`
	CreatedAt         time.Time  `json:"created_at"`
	LastLogin         time.Time  `json:"last_login"`
	LastUpdated       time.Time  `json:"last_updated"`
	// 后端认证模式下记录远端用户ID
	ExternalID string `json:"external_id,omitempty"`
}

// Public 去掉敏感字段后的副本，用于 API 输出
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

// IsAdmin reports whether the user may access the admin panel.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserUpdate 管理后台可修改的字段，nil 表示不修改
type UserUpdate struct {
	Name   *string     `json:"name,omitempty"`
	Role   *Role       `json:"role,omitempty"`
	Status *UserStatus `json:"status,omitempty"`
}

func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

func (s UserStatus) Valid() bool { return s == UserActive || s == UserDisabled }
