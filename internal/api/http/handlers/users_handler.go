package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/profile-service/internal/api/dto"
	"github.com/spec-kit/profile-service/internal/auth"
	"github.com/spec-kit/profile-service/internal/domain"
	"github.com/spec-kit/profile-service/internal/repository"
	"github.com/spec-kit/profile-service/internal/service"
	apperrors "github.com/spec-kit/profile-service/pkg/util"
)

const (
	defaultTake = 20
	maxTake     = 100
)

// UsersHandler exposes the user profile endpoints.
type UsersHandler struct {
	service *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{service: userService}
}

// Create POST /users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	return h.service.Create(c.UserContext())
}

// List GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	skip, take := parsePaging(c)
	page, err := h.service.List(c.UserContext(), parseUserFilter(c), skip, take)
	if err != nil {
		return err
	}
	if page == nil {
		return c.SendStatus(http.StatusNoContent)
	}
	return c.JSON(dto.UserListResponse{Meta: dto.ListMeta{Total: page.Total}, Results: page.Results})
}

// GetByID GET /users/:id.
func (h *UsersHandler) GetByID(c *fiber.Ctx) error {
	user, err := h.service.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if user == nil {
		return c.SendStatus(http.StatusNoContent)
	}
	return c.JSON(user)
}

// GetCohortsByID GET /users/:id/cohorts.
func (h *UsersHandler) GetCohortsByID(c *fiber.Ctx) error {
	cohorts, err := h.service.GetCohortsByID(c.UserContext(), c.Params("id"))
	return sendCohorts(c, cohorts, err)
}

// AddCohort PUT /users/:userId/cohorts/:cohortId.
func (h *UsersHandler) AddCohort(c *fiber.Ctx) error {
	cohorts, err := h.service.AddCohort(c.UserContext(), c.Params("userId"), c.Params("cohortId"))
	return sendCohorts(c, cohorts, err)
}

// RemoveCohort DELETE /users/:userId/cohorts/:cohortId.
func (h *UsersHandler) RemoveCohort(c *fiber.Ctx) error {
	cohorts, err := h.service.RemoveCohort(c.UserContext(), c.Params("userId"), c.Params("cohortId"))
	return sendCohorts(c, cohorts, err)
}

// Update PUT /users and PUT /users/:id. The target is always the caller.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)

	// every field is optional, so an absent body is an empty update
	var req dto.UpdateUserRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewSaveRejected(err)
		}
	}

	user, err := h.service.Update(c.UserContext(), principal, req.ToProfileUpdate())
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// Delete DELETE /users and DELETE /users/:id. The target is always the caller.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)

	result, err := h.service.Delete(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// GetMessages GET /users/:id/messages.
func (h *UsersHandler) GetMessages(c *fiber.Ctx) error {
	user, err := h.service.GetMessages(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if user == nil {
		return c.SendStatus(http.StatusNoContent)
	}
	return c.JSON(dto.NewUserMessagesResponse(user))
}

func sendCohorts(c *fiber.Ctx, cohorts []string, err error) error {
	if err != nil {
		return err
	}
	if cohorts == nil {
		return c.SendStatus(http.StatusNoContent)
	}
	return c.JSON(cohorts)
}

func parseUserFilter(c *fiber.Ctx) repository.UserFilter {
	state := domain.UserState(strings.ToUpper(strings.TrimSpace(c.Query("state"))))
	if !state.Valid() {
		return repository.UserFilter{}
	}
	return repository.UserFilter{State: state}
}

func parsePaging(c *fiber.Ctx) (skip, take int64) {
	skip = parseInt64(c.Query("skip"), 0)
	take = parseInt64(c.Query("take"), defaultTake)
	if take == 0 {
		take = defaultTake
	}
	if take > maxTake {
		take = maxTake
	}
	return skip, take
}

func parseInt64(val string, def int64) int64 {
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}
