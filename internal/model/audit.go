package model

import (
	"time"
)

// RoleChange is an audit log entry for an admin change to a user's role or status
type RoleChange struct {
	ID           string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID       string     `json:"user_id" gorm:"type:varchar(36);not null;index"`
	BeforeRole   Role       `json:"before_role" gorm:"type:varchar(20)"`
	AfterRole    Role       `json:"after_role" gorm:"type:varchar(20)"`
	BeforeStatus UserStatus `json:"before_status" gorm:"type:varchar(20)"`
	AfterStatus  UserStatus `json:"after_status" gorm:"type:varchar(20)"`
	ChangedBy    string     `json:"changed_by" gorm:"type:varchar(36);not null;index"`
	ChangedAt    time.Time  `json:"changed_at" gorm:"autoCreateTime;index"`
	Reason       string     `json:"reason,omitempty" gorm:"type:text"`
}

func (RoleChange) TableName() string {
	return "role_changes"
}

// CacheEntry is one key of the durable client cache
type CacheEntry struct {
	Key       string    `gorm:"type:varchar(255);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (CacheEntry) TableName() string {
	return "client_cache_entries"
}
