package prenatal

import (
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/gestcare/gestcare/internal/domain/gestation"
	"github.com/gestcare/gestcare/internal/domain/reminder"
	"github.com/gestcare/gestcare/internal/domain/schedule"
	"github.com/gestcare/gestcare/internal/platform/auth"
	"github.com/gestcare/gestcare/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("patient", "clinician"))
	g.POST("/onboarding", h.Onboard)
	g.GET("/dashboard", h.GetDashboard)
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.UpdateProfile)
	g.DELETE("/profile", h.DeleteProfile)
	g.GET("/exams", h.ListExams)
	g.POST("/exams/:id/schedule", h.ScheduleExam)
	g.POST("/exams/:id/complete", h.CompleteExam)
	g.POST("/exams/:id/reminder-sent", h.MarkReminderSent)
	g.GET("/exams/:id/whatsapp", h.WhatsAppLink)
	g.GET("/settings", h.GetSettings)
	g.PUT("/settings", h.UpdateSettings)
	g.POST("/reminders/refresh", h.RefreshReminders)
	g.GET("/share/summary", h.ShareSummary)
	g.GET("/catalog", h.GetCatalog)
}

// userID is the token subject. Clinicians may act for a patient through the
// user_id query parameter.
func (h *Handler) userID(c echo.Context) (string, error) {
	ctx := c.Request().Context()
	if target := c.QueryParam("user_id"); target != "" {
		for _, r := range auth.RolesFromContext(ctx) {
			if r == "clinician" || r == "admin" {
				return target, nil
			}
		}
		return "", echo.NewHTTPError(http.StatusForbidden, "user_id override requires clinician role")
	}
	uid := auth.UserIDFromContext(ctx)
	if uid == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing user")
	}
	return uid, nil
}

func (h *Handler) fail(c echo.Context, err error) error {
	var ve *gestation.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"message":  "invalid pregnancy profile",
			"problems": ve.Problems,
		})
	case errors.Is(err, ErrProfileNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "pregnancy profile not found")
	case errors.Is(err, schedule.ErrExamNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "exam not found")
	case errors.Is(err, schedule.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, reminder.ErrInvalidLeadTime):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNoClinicNumber):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// -- Profile --

func (h *Handler) Onboard(c echo.Context) error {
	uid, err := h.userID(c)
	if err != nil {
		return err
	}
	var req ProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.Onboard(c.Request().Context(), uid, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDashboard(c echo.Context) error {
	uid, err := h.userID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.Dashboard(c.Request().Context(), uid)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) GetProfile(c echo.Context) error {
	uid, err := h.userID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetProfile(c.Request().Context(), uid)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	uid, err := h.userID(c)
	if err != nil {
		return err
	}
	var req ProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.UpdateProfile(c.Request().Context(), uid, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteProfile(c echo.Context) error {
	uid, err := h.userID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteProfile(c.Request().Context(), uid); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Exams --

func (h *Handler) ListExams(c echo.Context) error {
	uid, err := h.userID(c)
	if err != nil {
		return err
	}
	var filter *schedule.Status
	if raw := c.QueryParam("status"); raw != "" {
		st, ok := schedule.ParseStatus(raw)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status: "+raw)
		}
		filter = &st
	}
	exams, err := h.svc.ListExams(c.Request().Context(), uid, filter)
	if err != nil {
		return h.fail(c, err)
	}
	pg := pagination.FromContext(c)
	return c.JSON(http.StatusOK, pagination.NewResponse(pagination.Slice(exams, pg), len(exams), pg.Limit, pg.Offset))
}

type scheduleRequest struct {
	ScheduledDate *Date   `json:"scheduled_date"`
	Notes         *string `json:"notes"`
}

type completeRequest struct {
	Notes *string `json:"notes"`
}

const maxNotesLength = 2000

func validNotes(notes *string) bool {
	return notes == nil || utf8.RuneCountInString(*notes) <= maxNotesLength
}

func (h *Handler) ScheduleExam(c echo.Context) error {
	uid, err := h.userID(c)
	if err != nil {
		return err
	}
	var req scheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ScheduledDate == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "scheduled_date is required")
	}
	if !validNotes(req.Notes) {
		return echo.NewHTTPError(http.StatusBadRequest, "notes are too long")
	}
	e, err := h.svc.ScheduleExam(c.Request().Context(), uid, c.Param("id"), req.ScheduledDate.Time, req.Notes)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) CompleteExam(c echo.Context) error {
	uid, err := h.userID(c)
	if err != nil {
		return err
	}
	var req completeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !validNotes(req.Notes) {
		return echo.NewHTTPError(http.StatusBadRequest, "notes are too long")
	}
	e, err := h.svc.CompleteExam(c.Request().Context(), uid, c.Param("id"), req.Notes)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) MarkReminderSent(c echo.Context) error {
	uid, err := h.userID(c)
	if err != nil {
		return err
	}
	e, err := h.svc.MarkReminderSent(c.Request().Context(), uid, c.Param("id"), h.svc.now())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) WhatsAppLink(c echo.Context) error {
	uid, err := h.userID(c)
	if err != nil {
		return err
	}
	link, err := h.svc.WhatsAppLink(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"url": link})
}

// -- Settings and reminders --

func (h *Handler) GetSettings(c echo.Context) error {
	uid, err := h.userID(c)
	if err != nil {
		return err
	}
	s, err := h.svc.GetSettings(c.Request().Context(), uid)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) UpdateSettings(c echo.Context) error {
	uid, err := h.userID(c)
	if err != nil {
		return err
	}
	current, err := h.svc.GetSettings(c.Request().Context(), uid)
	if err != nil {
		return h.fail(c, err)
	}
	if err := c.Bind(&current); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s, err := h.svc.UpdateSettings(c.Request().Context(), uid, current)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) RefreshReminders(c echo.Context) error {
	uid, err := h.userID(c)
	if err != nil {
		return err
	}
	res, err := h.svc.RefreshReminders(c.Request().Context(), uid)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) ShareSummary(c echo.Context) error {
	uid, err := h.userID(c)
	if err != nil {
		return err
	}
	s, err := h.svc.ShareSummary(c.Request().Context(), uid)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) GetCatalog(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Catalog().Exams())
}
