package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestObserveHTTP(t *testing.T) {
	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/restaurants", "200"))
	ObserveHTTP(http.MethodGet, "/api/restaurants", http.StatusOK, 5*time.Millisecond)
	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/restaurants", "200"))
	assert.Equal(t, before+1, after)
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(reservationsCreated)
	IncReservationCreated()
	assert.Equal(t, before+1, testutil.ToFloat64(reservationsCreated))

	beforeStatus := testutil.ToFloat64(reservationTransitions.WithLabelValues("CANCELLED", "CUSTOMER"))
	IncStatusChange("CANCELLED", "CUSTOMER")
	assert.Equal(t, beforeStatus+1, testutil.ToFloat64(reservationTransitions.WithLabelValues("CANCELLED", "CUSTOMER")))

	beforeLogin := testutil.ToFloat64(loginAttempts.WithLabelValues("failure"))
	IncLogin("failure")
	assert.Equal(t, beforeLogin+1, testutil.ToFloat64(loginAttempts.WithLabelValues("failure")))
}
