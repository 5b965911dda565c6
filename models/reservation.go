package models

import (
	"strings"
	"time"
)

// ReservationStatus is the lifecycle state of a booking
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "PENDING"
	StatusConfirmed ReservationStatus = "CONFIRMED"
	StatusCancelled ReservationStatus = "CANCELLED"
	StatusCompleted ReservationStatus = "COMPLETED"
)

// ParseStatus accepts any casing of a known status name.
func ParseStatus(s string) (ReservationStatus, bool) {
	st := ReservationStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return st, true
	}
	return "", false
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Reservation struct {
	ID           uint              `json:"id" gorm:"primaryKey"`
	CustomerID   uint              `json:"customerId" gorm:"not null;index"`
	Customer     *User             `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	RestaurantID uint              `json:"restaurantId" gorm:"not null;index:idx_reservation_slot"`
	Restaurant   *Restaurant       `json:"restaurant,omitempty" gorm:"foreignKey:RestaurantID"`
	Date         string            `json:"date" gorm:"size:10;not null;index:idx_reservation_slot"`
	Time         string            `json:"time" gorm:"size:5;not null;index:idx_reservation_slot"`
	PartySize    int               `json:"partySize" gorm:"not null"`
	Status       ReservationStatus `json:"status" gorm:"size:16;not null;index"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// ReservationStatusHistory tracks every status change of a reservation
type ReservationStatusHistory struct {
	ID            uint              `json:"id" gorm:"primaryKey"`
	ReservationID uint              `json:"reservationId" gorm:"not null;index"`
	FromStatus    ReservationStatus `json:"fromStatus"`
	ToStatus      ReservationStatus `json:"toStatus" gorm:"not null"`
	ChangedBy     uint              `json:"changedBy"`
	Note          string            `json:"note"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// ReservationResponse is the API projection of a reservation. Customer
// fields are only filled for the restaurant side.
type ReservationResponse struct {
	ID             uint              `json:"id"`
	RestaurantID   uint              `json:"restaurantId"`
	RestaurantName string            `json:"restaurantName"`
	Date           string            `json:"date"`
	Time           string            `json:"time"`
	PartySize      int               `json:"partySize"`
	Status         ReservationStatus `json:"status"`
	CustomerName   string            `json:"customerName,omitempty"`
	CustomerEmail  string            `json:"customerEmail,omitempty"`
}
