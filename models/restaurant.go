package models

import "time"

type Restaurant struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	Location  string    `json:"location" gorm:"index"`
	Cuisine   string    `json:"cuisine" gorm:"index"`
	Capacity  int       `json:"capacity" gorm:"not null"`
	Available bool      `json:"available" gorm:"not null"`
	OwnerID   uint      `json:"ownerId" gorm:"not null;index"`
	Owner     *User     `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
