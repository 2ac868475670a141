package identity

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/pkg/pagination"
)

// TokenIssuer signs a bearer token for an authenticated user.
type TokenIssuer func(p auth.Principal) (string, error)

type Handler struct {
	svc   *Service
	issue TokenIssuer
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// WithTokenIssuer enables POST /auth/login.
func (h *Handler) WithTokenIssuer(issue TokenIssuer) *Handler {
	h.issue = issue
	return h
}

// RegisterPublicRoutes mounts the login endpoint outside the authenticated
// group. It is a no-op without a token issuer.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	if h.issue == nil {
		return
	}
	g.POST("/auth/login", h.Login)
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	admin := api.Group("/admin/users", auth.RequireCapability(auth.CapManageUsers))
	admin.POST("", h.Create)
	admin.GET("", h.List)
	admin.GET("/:id", h.Get)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	u, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	u, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	users, total, err := h.svc.List(c.Request().Context(), ListFilter{
		Role:   auth.Role(c.QueryParam("role")),
		Limit:  pg.Limit,
		Offset: pg.Offset,
	})
	if err != nil {
		return err
	}
	if users == nil {
		users = []*User{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(users, total, pg).WithLinks(c.Request().URL))
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string    `json:"token"`
	User  *User     `json:"user"`
	Role  auth.Role `json:"role"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	u, ok, err := h.svc.CheckPassword(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}
	token, err := h.issue(auth.Principal{ID: u.ID, Role: u.Role})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, User: u, Role: u.Role})
}
