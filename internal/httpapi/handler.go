package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"presensi/internal/attendance"
	"presensi/internal/auth"
	"presensi/internal/config"
	"presensi/internal/device"
	"presensi/internal/login"
	"presensi/internal/netgate"
	"presensi/internal/user"
)

const deviceCookie = "device_id"

// Handler wires the core services to the HTTP surface.
type Handler struct {
	cfg        config.App
	login      *login.Service
	attendance *attendance.Service
	users      user.Store
	registry   *device.Registry
	gate       *netgate.Gate

	// now is swapped for a fixed clock in tests.
	now func() time.Time
}

// New creates a handler over the given collaborators.
func New(cfg config.App, loginSvc *login.Service, attSvc *attendance.Service, users user.Store, registry *device.Registry, gate *netgate.Gate) *Handler {
	return &Handler{cfg: cfg, login: loginSvc, attendance: attSvc, users: users, registry: registry, gate: gate, now: time.Now}
}

// Register mounts all API routes on r.
func (h *Handler) Register(r *gin.Engine) {
	r.POST("/api/login", h.Login)

	api := r.Group("/api", auth.RequireAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))
	api.POST("/attendance", auth.RequireRole(user.RoleStudent), h.MarkPresent)
	api.POST("/leave", auth.RequireRole(user.RoleStudent), h.RequestLeave)
	api.GET("/attendance/me", h.History)

	admin := api.Group("/admin", auth.RequireRole(user.RoleAdmin))
	admin.GET("/attendance", h.ListAttendance)
	admin.PATCH("/attendance/:id/approve", h.ApproveLeave)
	admin.PATCH("/attendance/:id/reject", h.RejectLeave)
	admin.POST("/users", h.CreateUser)
	admin.GET("/users", h.ListUsers)
	admin.DELETE("/users/:name", h.DeleteUser)
	admin.GET("/devices", h.ListDevices)
	admin.GET("/stats", h.Stats)
	admin.DELETE("/devices/:deviceID", h.DeleteDevice)
}

// ---------- Login ----------

type loginRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
	DeviceID string `json:"device_id"`
}

// Login authenticates and returns a device-bound session. The device token is
// returned in the body and persisted as a long-lived cookie so returning
// browsers are recognized without re-binding.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name and password are required")
		return
	}

	deviceID := req.DeviceID
	if deviceID == "" {
		if fromCookie, err := c.Cookie(deviceCookie); err == nil {
			deviceID = fromCookie
		}
	}

	result, err := h.login.Login(c.Request.Context(), h.now(), req.Name, req.Password, deviceID)
	if err != nil {
		loginsTotal.WithLabelValues("failure").Inc()
		h.mapError(c, err)
		return
	}
	loginsTotal.WithLabelValues("success").Inc()

	secure := h.cfg.Env == "production" || h.cfg.Env == "prod"
	c.SetCookie(deviceCookie, result.DeviceID, int(result.DeviceTokenTTL.Seconds()), "/", "", secure, true)

	c.JSON(http.StatusOK, result)
}

// ---------- Attendance ----------

type markPresentRequest struct {
	LoginTime time.Time `json:"login_time"`
}

func (h *Handler) MarkPresent(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)

	sourceIP, err := h.gate.CheckRequest(c.GetHeader("X-Forwarded-For"), c.Request.RemoteAddr)
	if err != nil {
		h.mapError(c, err)
		return
	}

	var req markPresentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "login_time must be RFC3339 if provided")
			return
		}
	}

	rec, err := h.attendance.MarkPresent(c.Request.Context(), h.now(),
		claims.Name, claims.Group, claims.DeviceID, sourceIP, req.LoginTime)
	if err != nil {
		h.mapError(c, err)
		return
	}
	attendanceTotal.WithLabelValues(string(rec.Status)).Inc()
	c.JSON(http.StatusCreated, gin.H{"message": "attendance recorded for " + string(rec.Session) + " session", "record": rec})
}

type leaveRequest struct {
	Date      string    `json:"date" binding:"required"`
	Session   string    `json:"session" binding:"required"`
	Reason    string    `json:"reason" binding:"required"`
	LoginTime time.Time `json:"login_time"`
}

func (h *Handler) RequestLeave(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)

	var req leaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "date, session and reason are required")
		return
	}

	rec, err := h.attendance.RequestLeave(c.Request.Context(), h.now(),
		claims.Name, claims.Group, claims.DeviceID, req.Date, attendance.Session(req.Session), req.Reason, req.LoginTime)
	if err != nil {
		h.mapError(c, err)
		return
	}
	attendanceTotal.WithLabelValues(string(rec.Status)).Inc()
	c.JSON(http.StatusCreated, gin.H{"message": "leave request filed, awaiting approval", "record": rec})
}

func (h *Handler) History(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	records, err := h.attendance.History(c.Request.Context(), claims.Name)
	if err != nil {
		h.mapError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// ---------- Admin: attendance ----------

func (h *Handler) ListAttendance(c *gin.Context) {
	f := attendance.Filter{
		Date:    c.Query("date"),
		Group:   c.Query("group"),
		Session: attendance.Session(c.Query("session")),
		Status:  attendance.Status(c.Query("status")),
	}
	records, err := h.attendance.Search(c.Request.Context(), f)
	if err != nil {
		h.mapError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(records), "records": records})
}

func (h *Handler) ApproveLeave(c *gin.Context) {
	rec, err := h.attendance.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.mapError(c, err)
		return
	}
	leaveDecisionsTotal.WithLabelValues("approved").Inc()
	c.JSON(http.StatusOK, gin.H{"message": "leave approved", "record": rec})
}

func (h *Handler) RejectLeave(c *gin.Context) {
	rec, err := h.attendance.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.mapError(c, err)
		return
	}
	leaveDecisionsTotal.WithLabelValues("rejected").Inc()
	c.JSON(http.StatusOK, gin.H{"message": "leave rejected", "record": rec})
}

// ---------- Admin: users & devices ----------

type createUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
	Group    string `json:"group"`
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name, password and role are required")
		return
	}
	if len(req.Password) < 6 {
		badRequest(c, "password must be at least 6 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.mapError(c, err)
		return
	}
	u, err := user.New(req.Name, hash, req.Role, req.Group, h.now())
	if err != nil {
		h.mapError(c, err)
		return
	}
	if err := h.users.Create(c.Request.Context(), u); err != nil {
		h.mapError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "user created", "user": u.Summary()})
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.mapError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	name := c.Param("name")
	if err := h.users.Delete(c.Request.Context(), name); err != nil {
		h.mapError(c, err)
		return
	}
	if err := h.registry.RemoveForOwner(c.Request.Context(), name); err != nil {
		h.mapError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user " + name + " deleted"})
}

func (h *Handler) ListDevices(c *gin.Context) {
	bindings, err := h.registry.List(c.Request.Context())
	if err != nil {
		h.mapError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": bindings})
}

// Stats returns the dashboard counters: enrolled students, today's
// attendance, leave requests awaiting a decision, and bound devices.
func (h *Handler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	users, err := h.users.List(ctx)
	if err != nil {
		h.mapError(c, err)
		return
	}
	students := 0
	for _, u := range users {
		if u.Role == user.RoleStudent {
			students++
		}
	}

	today, err := h.attendance.Count(ctx, attendance.Filter{Date: attendance.DateOf(h.now())})
	if err != nil {
		h.mapError(c, err)
		return
	}
	pending, err := h.attendance.Count(ctx, attendance.Filter{Status: attendance.StatusLeavePending})
	if err != nil {
		h.mapError(c, err)
		return
	}
	bindings, err := h.registry.List(ctx)
	if err != nil {
		h.mapError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_students":   students,
		"today_attendance": today,
		"pending_leaves":   pending,
		"total_devices":    len(bindings),
	})
}

func (h *Handler) DeleteDevice(c *gin.Context) {
	binding, err := h.registry.Remove(c.Request.Context(), c.Param("deviceID"))
	if err != nil {
		h.mapError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "device deleted", "deleted_device": binding})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": msg})
}
