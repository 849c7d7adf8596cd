// Package handlers adapts gin requests to the domain packages and maps
// their results onto the {success, data, error, meta} wire envelope.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/slotwise/reservation-engine/internal/middleware"
	"github.com/slotwise/reservation-engine/internal/reservation"
)

// respondDomainError maps a reservation.Error, a gorm not-found, or any
// other error onto the appropriate HTTP status and error code from
// spec.md §7's taxonomy.
func respondDomainError(c *gin.Context, err error) {
	// Every reservation.Error — including TREATMENT_NOT_FOUND and
	// INVALID_STAFF — is an admission-check failure and is reported as a
	// single CONFLICT_ERROR carrying its specific §4.5 reason code, per
	// spec.md §7; it is never split into 404/400 on the sub-reason.
	var rerr *reservation.Error
	if errors.As(err, &rerr) {
		middleware.RespondError(c, http.StatusConflict, middleware.CodeConflict, rerr.Error())
		return
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		middleware.RespondError(c, http.StatusNotFound, middleware.CodeNotFound, "resource not found")
		return
	}

	middleware.RespondError(c, http.StatusInternalServerError, middleware.CodeInternalError, err.Error())
}
