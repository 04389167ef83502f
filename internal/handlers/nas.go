package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/openisp/naps/internal/models"
	"github.com/openisp/naps/internal/raddb"
	"github.com/openisp/naps/internal/radius"
)

type NasHandler struct {
	mapper *raddb.Mapper
}

func NewNasHandler(mapper *raddb.Mapper) *NasHandler {
	return &NasHandler{mapper: mapper}
}

// List returns all NAS devices. Secrets never leave the server; HasSecret
// signals their presence.
func (h *NasHandler) List(c *fiber.Ctx) error {
	list, err := h.mapper.ListNAS()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch NAS devices",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    list,
	})
}

type nasRequest struct {
	NasName     string `json:"nasname"`
	ShortName   string `json:"shortname"`
	Type        string `json:"type"`
	Ports       string `json:"ports"`
	Secret      string `json:"secret"`
	Server      string `json:"server"`
	Community   string `json:"community"`
	Description string `json:"description"`
}

// Upsert creates or updates a NAS row keyed on nasname.
func (h *NasHandler) Upsert(c *fiber.Ctx) error {
	var req nasRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}
	if req.NasName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "nasname is required",
		})
	}

	nas := models.Nas{
		NasName:     req.NasName,
		ShortName:   req.ShortName,
		Type:        req.Type,
		Ports:       raddb.ParsePorts(req.Ports),
		Secret:      req.Secret,
		Server:      req.Server,
		Community:   req.Community,
		Description: req.Description,
	}
	if nas.Type == "" {
		nas.Type = "other"
	}
	if err := h.mapper.UpsertNAS(&nas); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to save NAS device",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "NAS device saved. FreeRADIUS reads the nas table on startup; reload it to pick up the change.",
	})
}

// Remove deletes a NAS row by nasname.
func (h *NasHandler) Remove(c *fiber.Ctx) error {
	nasname := c.Params("nasname")
	if err := h.mapper.RemoveNAS(nasname); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to remove NAS device",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "NAS device removed",
	})
}

type probeRequest struct {
	NasIP  string `json:"nas_ip"`
	Secret string `json:"secret"`
}

// ProbeSecret validates a RADIUS shared secret against a live NAS with a
// minimal CoA exchange. Either an ACK or a NAK proves the secret.
func (h *NasHandler) ProbeSecret(c *fiber.Ctx) error {
	var req probeRequest
	if err := c.BodyParser(&req); err != nil || req.NasIP == "" || req.Secret == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "nas_ip and secret are required",
		})
	}

	result := radius.ProbeSecret(req.NasIP, req.Secret)
	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}
