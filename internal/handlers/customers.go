package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/openisp/naps/internal/database"
	"github.com/openisp/naps/internal/models"
	"github.com/openisp/naps/internal/naperr"
	"github.com/openisp/naps/internal/provision"
	"gorm.io/gorm"
)

type CustomerHandler struct {
	orch *provision.Orchestrator
}

func NewCustomerHandler(orch *provision.Orchestrator) *CustomerHandler {
	return &CustomerHandler{orch: orch}
}

// statusForError maps the typed error kinds onto HTTP statuses.
func statusForError(err error) int {
	switch naperr.KindOf(err) {
	case naperr.InvalidInput:
		return fiber.StatusBadRequest
	case naperr.ConfigMissing:
		return fiber.StatusUnprocessableEntity
	case naperr.AuthFailed:
		return fiber.StatusBadGateway
	case naperr.Unreachable, naperr.TransientDB:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(statusForError(err)).JSON(fiber.Map{
		"success": false,
		"message": err.Error(),
		"kind":    string(naperr.KindOf(err)),
	})
}

type createCustomerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	PlanCode string `json:"plan_code"`
}

// Create provisions the RADIUS credential and stores the customer record.
// A generated password is returned exactly once.
func (h *CustomerHandler) Create(c *fiber.Ctx) error {
	var req createCustomerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	report, password, err := h.orch.CreateCustomer(c.Context(), req.Username, req.Password, req.PlanCode)
	if err != nil {
		return fail(c, err)
	}

	customer := models.Customer{
		Username: req.Username,
		FullName: req.FullName,
		PlanCode: req.PlanCode,
	}
	if err := database.DB.Create(&customer).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Credential written but the customer record failed to save",
		})
	}

	resp := fiber.Map{
		"success": true,
		"data":    customer,
		"report":  report,
	}
	if req.Password == "" {
		resp["generated_password"] = password
	}
	return c.JSON(resp)
}

// List returns customer records.
func (h *CustomerHandler) List(c *fiber.Ctx) error {
	var customers []models.Customer
	if err := database.DB.Order("username ASC").Find(&customers).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch customers",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    customers,
	})
}

func (h *CustomerHandler) lookup(c *fiber.Ctx) (*models.Customer, error) {
	var customer models.Customer
	err := database.DB.Where("username = ?", c.Params("username")).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Customer not found",
		})
	}
	if err != nil {
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch customer",
		})
	}
	return &customer, nil
}

// Get returns one customer with the derived RADIUS state.
func (h *CustomerHandler) Get(c *fiber.Ctx) error {
	customer, done := h.lookup(c)
	if customer == nil {
		return done
	}
	state, err := h.orch.DB.UserState(customer.Username)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    customer,
		"state":   state,
	})
}

// Suspend parks the customer in the suspension group.
func (h *CustomerHandler) Suspend(c *fiber.Ctx) error {
	customer, done := h.lookup(c)
	if customer == nil {
		return done
	}
	report, err := h.orch.Suspend(c.Context(), customer.Username)
	if err != nil {
		return fail(c, err)
	}
	database.DB.Model(customer).Update("suspended", true)
	database.InvalidatePPPoEStatus(customer.Username)
	return c.JSON(fiber.Map{
		"success": true,
		"report":  report,
	})
}

// Reactivate moves the customer back to their plan group.
func (h *CustomerHandler) Reactivate(c *fiber.Ctx) error {
	customer, done := h.lookup(c)
	if customer == nil {
		return done
	}
	report, err := h.orch.Reactivate(c.Context(), customer.Username, customer.PlanCode)
	if err != nil {
		return fail(c, err)
	}
	database.DB.Model(customer).Update("suspended", false)
	database.InvalidatePPPoEStatus(customer.Username)
	return c.JSON(fiber.Map{
		"success": true,
		"report":  report,
	})
}

// Remove deletes the credential rows and soft-deletes the customer record.
// Accounting history stays untouched.
func (h *CustomerHandler) Remove(c *fiber.Ctx) error {
	customer, done := h.lookup(c)
	if customer == nil {
		return done
	}
	report, err := h.orch.RemoveCustomer(c.Context(), customer.Username)
	if err != nil {
		return fail(c, err)
	}
	database.DB.Delete(customer)
	database.InvalidatePPPoEStatus(customer.Username)
	return c.JSON(fiber.Map{
		"success": true,
		"report":  report,
	})
}

type testAuthRequest struct {
	Password string `json:"password"`
}

// TestAuth runs a live PAP Access-Request for the customer's credentials
// against the RADIUS server.
func (h *CustomerHandler) TestAuth(c *fiber.Ctx) error {
	customer, done := h.lookup(c)
	if customer == nil {
		return done
	}
	var req testAuthRequest
	if err := c.BodyParser(&req); err != nil || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "password is required",
		})
	}

	result, err := h.orch.TestCredentials(c.Context(), customer.Username, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}
