package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/openisp/naps/internal/provision"
	"github.com/openisp/naps/internal/raddb"
)

type PlanHandler struct {
	orch *provision.Orchestrator
}

func NewPlanHandler(orch *provision.Orchestrator) *PlanHandler {
	return &PlanHandler{orch: orch}
}

// Sync renders and replaces the plan's radgroupreply rows.
func (h *PlanHandler) Sync(c *fiber.Ctx) error {
	var plan raddb.Plan
	if err := c.BodyParser(&plan); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}
	if plan.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "code is required",
		})
	}

	report, err := h.orch.SyncPlan(c.Context(), plan)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"report":  report,
	})
}

// Attrs returns the attribute rows currently stored for the plan group.
func (h *PlanHandler) Attrs(c *fiber.Ctx) error {
	group := raddb.GroupName(h.orch.CompanyCode, c.Params("code"))
	attrs, err := h.orch.DB.PlanAttrs(group)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    attrs,
	})
}

// Remove deletes the plan group's reply rows. Memberships are untouched.
func (h *PlanHandler) Remove(c *fiber.Ctx) error {
	group := raddb.GroupName(h.orch.CompanyCode, c.Params("code"))
	if err := h.orch.DB.RemovePlan(group); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Plan attributes removed",
	})
}
