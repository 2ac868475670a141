package scheduling

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/pkg/pagination"
)

type Handler struct {
	calc *Calculator
	svc  *Coordinator
}

func NewHandler(calc *Calculator, svc *Coordinator) *Handler {
	return &Handler{calc: calc, svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/clinics/:id/slots", h.Slots, auth.RequireCapability(auth.CapViewSlots))

	patient := api.Group("/patient", auth.RequireCapability(auth.CapBookOwn))
	patient.POST("/appointments", h.BookForSelf)
	patient.GET("/appointments", h.ListMine, auth.RequireCapability(auth.CapViewOwnSchedule))

	reception := api.Group("/receptionist", auth.RequireCapability(auth.CapBookForPatient))
	reception.POST("/appointments", h.BookForPatient)

	api.GET("/doctor/appointments", h.DoctorSchedule, auth.RequireCapability(auth.CapViewDoctorSchedule))

	appts := api.Group("/appointments")
	appts.GET("/:id", h.Get, auth.RequireCapability(
		auth.CapViewOwnSchedule, auth.CapViewDoctorSchedule, auth.CapViewAnyAppointment))
	appts.PATCH("/:id/status", h.UpdateStatus, auth.RequireCapability(
		auth.CapUpdateAppointment, auth.CapCancelOwn))
}

type slotsQuery struct {
	Date     string `query:"date" validate:"required,datetime=2006-01-02"`
	DoctorID string `query:"doctor_id" validate:"omitempty,uuid"`
}

func (h *Handler) Slots(c echo.Context) error {
	clinicID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid clinic id")
	}
	q := slotsQuery{Date: c.QueryParam("date"), DoctorID: c.QueryParam("doctor_id")}
	if err := c.Validate(&q); err != nil {
		return err
	}
	var doctorID *uuid.UUID
	if q.DoctorID != "" {
		id := uuid.MustParse(q.DoctorID)
		doctorID = &id
	}

	avail, err := h.calc.Availability(c.Request().Context(), clinicID, q.Date, doctorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, avail)
}

func (h *Handler) bind(c echo.Context) (BookingRequest, error) {
	var req BookingRequest
	if err := c.Bind(&req); err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return req, err
	}
	return req, nil
}

// BookForSelf books for the signed-in patient. Any patient_id in the body
// is ignored.
func (h *Handler) BookForSelf(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	req, err := h.bind(c)
	if err != nil {
		return err
	}
	req.PatientID = p.ID
	return h.book(c, req)
}

func (h *Handler) BookForPatient(c echo.Context) error {
	req, err := h.bind(c)
	if err != nil {
		return err
	}
	if req.PatientID == uuid.Nil {
		return ErrPatientRequired
	}
	return h.book(c, req)
}

func (h *Handler) book(c echo.Context, req BookingRequest) error {
	appt, err := h.svc.Book(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) ListMine(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForPatient(c.Request().Context(), p.ID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Appointment{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg).WithLinks(c.Request().URL))
}

func (h *Handler) DoctorSchedule(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	items, err := h.svc.DoctorSchedule(c.Request().Context(), p.ID, c.QueryParam("date"))
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Appointment{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Get(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appt, err := h.svc.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appt)
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body statusRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&body); err != nil {
		return err
	}
	appt, err := h.svc.UpdateStatus(c.Request().Context(), p, id, Status(body.Status))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appt)
}
