package core

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Property is the primary tracked entity: a unit identified by a short
// label plus free-form notes.
type Property struct {
	Id     uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Number string `gorm:"type:varchar(100);not null;index" json:"number"`
	Notes  string `gorm:"type:text" json:"notes"`
}

func (Property) TableName() string {
	return "properties"
}

// Event is a timestamped occurrence belonging to exactly one property.
// Immutable once created; removed when its property is deleted.
type Event struct {
	Id          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyId  uint      `gorm:"not null;index" json:"property_id"`
	Property    *Property `gorm:"foreignKey:PropertyId;constraint:OnDelete:CASCADE" json:"-"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `gorm:"type:text;not null" json:"description"`
}

func (Event) TableName() string {
	return "events"
}

// Migrate creates or updates the properties and events tables.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(&Property{}, &Event{})
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	return nil
}
