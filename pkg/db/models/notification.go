package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brianmwirigi/sokofresh-backend/pkg/enums"
)

// Notification is a materialized in-app notification row. UserID is nil for
// admin broadcasts.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserID    *uuid.UUID             `gorm:"column:user_id;type:uuid;index"`
	Type      enums.NotificationType `gorm:"column:type;type:text;not null"`
	Title     string                 `gorm:"column:title;not null"`
	Message   string                 `gorm:"column:message;not null"`
	Link      *string                `gorm:"column:link"`
	ReadAt    *time.Time             `gorm:"column:read_at"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}
