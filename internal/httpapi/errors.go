package httpapi

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"presensi/internal/attendance"
	"presensi/internal/device"
	"presensi/internal/login"
	"presensi/internal/netgate"
	"presensi/internal/user"
)

// mapError translates core error kinds into stable HTTP payloads. Every
// response carries a machine-readable error kind and a human message; storage
// detail and secrets never leave this function.
func (h *Handler) mapError(c *gin.Context, err error) {
	var (
		conflict  device.ConflictError
		capacity  user.CapacityError
		denied    netgate.DeniedError
		duplicate attendance.DuplicateError
		badState  attendance.TransitionError
	)

	switch {
	case errors.Is(err, login.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials", "message": err.Error()})

	case errors.As(err, &conflict):
		c.JSON(http.StatusForbidden, gin.H{
			"error":    "device_conflict",
			"message":  conflict.Error(),
			"bound_to": conflict.BoundTo,
			"conflict": true,
		})

	case errors.As(err, &capacity):
		c.JSON(http.StatusForbidden, gin.H{
			"error":         "device_capacity_exceeded",
			"message":       capacity.Error(),
			"devices_count": capacity.Count,
			"max_devices":   capacity.Max,
		})

	case errors.As(err, &denied):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "location_not_permitted",
			"message": "attendance is only allowed from the permitted network",
			"your_ip": denied.Addr,
		})

	case errors.Is(err, attendance.ErrOutsideWindow):
		c.JSON(http.StatusBadRequest, gin.H{"error": "outside_window", "message": err.Error()})

	case errors.As(err, &duplicate):
		c.JSON(http.StatusConflict, gin.H{
			"error":    "duplicate_attendance",
			"message":  duplicate.Error(),
			"existing": duplicate.Existing,
		})

	case errors.As(err, &badState):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "invalid_transition",
			"message": badState.Error(),
			"status":  badState.Current,
		})

	case errors.Is(err, user.ErrDuplicateName):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate_name", "message": err.Error()})

	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, device.ErrNotFound),
		errors.Is(err, attendance.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": err.Error()})

	case errors.Is(err, user.ErrInvalidInput),
		errors.Is(err, attendance.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})

	default:
		log.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "unexpected server error"})
	}
}
