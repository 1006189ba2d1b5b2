package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-trial-monitor/internal/apperr"
	"github.com/mr1hm/go-trial-monitor/internal/metrics"
	"github.com/mr1hm/go-trial-monitor/internal/models"
	"github.com/mr1hm/go-trial-monitor/internal/session"
)

// MonitorService is what the dashboard routes call into.
type MonitorService interface {
	GetUpdates(ctx context.Context, clinicID string) ([]models.UpdateRecord, error)
	GetStatus(ctx context.Context, clinicID string) (models.ClinicStatus, error)
	GetClinicData(ctx context.Context, clinicID string) (models.ClinicData, error)
	GetAllClinics(ctx context.Context) ([]models.ClinicStatus, error)
	GetAnalytics(ctx context.Context) (models.AnalyticsSnapshot, error)
	GetFeverChart(ctx context.Context) ([]models.FeverChartRow, error)
	GetAlerts(ctx context.Context) ([]models.Alert, error)
	GetAlertHistory(ctx context.Context, clinicID string) ([]models.Alert, error)
	ResolveAlert(ctx context.Context, alertID string) (*models.Alert, error)
	SubmitUpdate(ctx context.Context, clinicID string, in models.UpdateInput) (*models.UpdateRecord, error)
	RegisterClinic(ctx context.Context, clinicID string) error
}

// Sessions issues and resolves login sessions.
type Sessions interface {
	Register(c session.Credentials) (session.User, error)
	Login(c session.Credentials) (*session.Session, error)
	Lookup(token string) (*session.Session, bool)
	Logout(token string)
}

type Handler struct {
	svc      MonitorService
	sessions Sessions
}

func NewHandler(svc MonitorService, sessions Sessions) *Handler {
	return &Handler{
		svc:      svc,
		sessions: sessions,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	auth := r.Group("/api/auth")
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)
	auth.POST("/logout", h.requireSession(), h.logout)

	clinic := r.Group("/api/clinic", h.requireSession(session.RoleClinic))
	clinic.GET("/updates", h.getUpdates)
	clinic.POST("/updates", h.submitUpdate)
	clinic.GET("/status", h.getStatus)

	manager := r.Group("/api/manager", h.requireSession(session.RoleManager))
	manager.GET("/clinics", h.getAllClinics)
	manager.GET("/clinics/:id", h.getClinicData)
	manager.GET("/analytics", h.getAnalytics)
	manager.GET("/analytics/fever-chart", h.getFeverChart)
	manager.GET("/alerts", h.getAlerts)
	manager.PATCH("/alerts/:id/resolve", h.resolveAlert)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// register creates an account. A clinic account first creates its clinic when
// the clinic is not known yet, so the new user can submit right away.
func (h *Handler) register(c *gin.Context) {
	var creds session.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		respondError(c, bindError(err))
		return
	}

	creds, err := creds.Normalize()
	if err != nil {
		respondError(c, err)
		return
	}
	if creds.Role == session.RoleClinic {
		if err := h.svc.RegisterClinic(c.Request.Context(), creds.ClinicID); err != nil {
			respondError(c, err)
			return
		}
	}

	u, err := h.sessions.Register(creds)
	if errors.Is(err, session.ErrAccountExists) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	slog.Info("account registered", "user_id", u.ID, "role", u.Role, "clinic_id", u.ClinicID)
	c.JSON(http.StatusCreated, u)
}

func (h *Handler) login(c *gin.Context) {
	var creds session.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid login request"})
		return
	}

	sess, err := h.sessions.Login(creds)
	if err != nil {
		slog.Info("login rejected", "role", creds.Role, "clinic_id", creds.ClinicID)
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	slog.Info("login", "user_id", sess.User.ID, "role", sess.User.Role)
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) logout(c *gin.Context) {
	h.sessions.Logout(currentSession(c).Token)
	c.Status(http.StatusNoContent)
}

func (h *Handler) getUpdates(c *gin.Context) {
	updates, err := h.svc.GetUpdates(c.Request.Context(), currentSession(c).User.ClinicID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updates)
}

func (h *Handler) submitUpdate(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	u, err := h.svc.SubmitUpdate(c.Request.Context(), currentSession(c).User.ClinicID, req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *Handler) getStatus(c *gin.Context) {
	st, err := h.svc.GetStatus(c.Request.Context(), currentSession(c).User.ClinicID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) getAllClinics(c *gin.Context) {
	statuses, err := h.svc.GetAllClinics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, statuses)
}

func (h *Handler) getClinicData(c *gin.Context) {
	data, err := h.svc.GetClinicData(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *Handler) getAnalytics(c *gin.Context) {
	snap, err := h.svc.GetAnalytics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) getFeverChart(c *gin.Context) {
	rows, err := h.svc.GetFeverChart(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// getAlerts returns open alerts. With include_resolved=true it returns the
// full history, optionally narrowed by clinic_id.
func (h *Handler) getAlerts(c *gin.Context) {
	includeResolved, _ := strconv.ParseBool(c.Query("include_resolved"))

	var (
		alerts []models.Alert
		err    error
	)
	if includeResolved {
		alerts, err = h.svc.GetAlertHistory(c.Request.Context(), c.Query("clinic_id"))
	} else {
		alerts, err = h.svc.GetAlerts(c.Request.Context())
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (h *Handler) resolveAlert(c *gin.Context) {
	a, err := h.svc.ResolveAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// statusClientClosedRequest is the nginx convention for a request the client
// abandoned before the response was ready.
const statusClientClosedRequest = 499

func respondError(c *gin.Context, err error) {
	switch {
	case apperr.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperr.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperr.IsTransient(err):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request timed out"})
	case errors.Is(err, context.Canceled):
		// The client went away; there is nobody to read the body.
		c.AbortWithStatus(statusClientClosedRequest)
	default:
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
