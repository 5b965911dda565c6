package statemachine

import (
	"fmt"
	"strings"

	"table-reservation-api/models"
)

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  models.ReservationStatus `json:"from"`
	To    models.ReservationStatus `json:"to"`
	Actor models.Role              `json:"actor"`
}

// validTransitions is the authoritative reservation lifecycle. Nothing leaves
// CANCELLED or COMPLETED.
var validTransitions = []Transition{
	// Restaurant side confirms
	{From: models.StatusPending, To: models.StatusConfirmed, Actor: models.RoleOwner},
	{From: models.StatusPending, To: models.StatusConfirmed, Actor: models.RoleAdmin},
	// Anyone involved can cancel a pending booking
	{From: models.StatusPending, To: models.StatusCancelled, Actor: models.RoleCustomer},
	{From: models.StatusPending, To: models.StatusCancelled, Actor: models.RoleOwner},
	{From: models.StatusPending, To: models.StatusCancelled, Actor: models.RoleAdmin},
	// ...or a confirmed one
	{From: models.StatusConfirmed, To: models.StatusCancelled, Actor: models.RoleCustomer},
	{From: models.StatusConfirmed, To: models.StatusCancelled, Actor: models.RoleOwner},
	{From: models.StatusConfirmed, To: models.StatusCancelled, Actor: models.RoleAdmin},
	// Guests showed up
	{From: models.StatusConfirmed, To: models.StatusCompleted, Actor: models.RoleOwner},
	{From: models.StatusConfirmed, To: models.StatusCompleted, Actor: models.RoleAdmin},
}

type transitionKey struct {
	From  models.ReservationStatus
	To    models.ReservationStatus
	Actor models.Role
}

var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool, len(validTransitions))
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor}] = true
	}
	return m
}()

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.ReservationStatus) []models.ReservationStatus {
	var nexts []models.ReservationStatus
	seen := map[models.ReservationStatus]bool{}
	for _, t := range validTransitions {
		if t.From == status && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// IsTerminal reports whether no transition leaves the status.
func IsTerminal(status models.ReservationStatus) bool {
	return len(ValidTransitionsFrom(status)) == 0
}

// CanTransition checks if a given actor can move from one state to another
func CanTransition(from, to models.ReservationStatus, actor models.Role) error {
	if transitionMap[transitionKey{From: from, To: to, Actor: actor}] {
		return nil
	}
	return fmt.Errorf("invalid transition: %s -> %s is not allowed for %s; valid transitions from %s: %s",
		from, to, actor, from, describeValidFrom(from))
}

func describeValidFrom(status models.ReservationStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	names := make([]string, len(nexts))
	for i, s := range nexts {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	return validTransitions
}
