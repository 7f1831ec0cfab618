package model

import "time"

// Account represents a player account stored in the database.
type Account struct {
	ID           uint32
	Username     string
	PasswordHash string // uppercase hex SHA-256(password + salt)
	Salt         string
	Flag         int16 // 0 = active, anything else = banned/locked
	AuthorityID  uint16
	CreatedAt    time.Time
}

// IsBanned reports whether the account status flag blocks logins.
func (a *Account) IsBanned() bool {
	return a.Flag != 0
}

// VipInfo is the VIP tier of an account. Absent row means tier 0.
type VipInfo struct {
	AccountID uint32
	VipLevel  byte
	ExpiresAt time.Time
}

// LoginRecord is one accepted login attempt written for auditing.
type LoginRecord struct {
	AccountID uint32
	IPAddress string
	DeviceID  string
	MAC       string
	Success   bool
	CreatedAt time.Time
}
