package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/openisp/naps/internal/config"
	"github.com/openisp/naps/internal/database"
	"github.com/openisp/naps/internal/models"
	"github.com/openisp/naps/internal/naperr"
	"github.com/openisp/naps/internal/olt"
	"github.com/openisp/naps/internal/onu"
	"github.com/openisp/naps/internal/provision"
	"github.com/openisp/naps/internal/security"
	"gorm.io/gorm"
)

// NewOLTDialer builds the DialFunc the orchestrator uses to reach devices.
// Credentials resolve device-custom first, then the company defaults; with
// neither configured the dial fails before any socket is opened.
func NewOLTDialer(cfg *config.Config) provision.DialFunc {
	return func(ctx context.Context, device *models.Olt) (provision.CommandRunner, error) {
		username := cfg.TelnetUsername
		password := cfg.TelnetPassword
		if device.UseCustomCredentials {
			username = device.TelnetUsername
			decrypted, err := security.Decrypt(device.TelnetPassword)
			if err != nil {
				return nil, naperr.Wrap(naperr.ConfigMissing, err,
					"stored credentials for %s cannot be unsealed", device.IP)
			}
			password = decrypted
		}
		return olt.Dial(ctx, olt.Config{
			Host:           device.IP,
			Port:           cfg.TelnetPort,
			Username:       username,
			Password:       password,
			ConnectTimeout: cfg.TelnetConnectTimeout,
			ReadTimeout:    cfg.TelnetReadTimeout,
			CmdDelay:       cfg.TelnetCmdDelay,
			PagerMax:       cfg.TelnetPagerMax,
		})
	}
}

type OltHandler struct {
	orch *provision.Orchestrator
	cfg  *config.Config
}

func NewOltHandler(orch *provision.Orchestrator, cfg *config.Config) *OltHandler {
	return &OltHandler{orch: orch, cfg: cfg}
}

type oltRequest struct {
	Name                 string `json:"name"`
	IP                   string `json:"ip"`
	Manufacturer         string `json:"manufacturer"`
	Model                string `json:"model"`
	UseCustomCredentials bool   `json:"use_custom_credentials"`
	TelnetUsername       string `json:"telnet_username"`
	TelnetPassword       string `json:"telnet_password"`
	VlanInternet         string `json:"vlan_internet"`
	VlanTV               string `json:"vlan_tv"`
	VlanVoice            string `json:"vlan_voice"`
}

// List returns the registered access devices. Stored passwords are never
// serialised.
func (h *OltHandler) List(c *fiber.Ctx) error {
	var devices []models.Olt
	if err := database.DB.Order("name ASC").Find(&devices).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch OLTs",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    devices,
	})
}

// Create registers an access device. A custom Telnet password is sealed
// before it touches the database.
func (h *OltHandler) Create(c *fiber.Ctx) error {
	var req oltRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}
	if req.Name == "" || req.IP == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "name and ip are required",
		})
	}

	device := models.Olt{
		Name:                 req.Name,
		IP:                   req.IP,
		Manufacturer:         strings.ToUpper(req.Manufacturer),
		Model:                req.Model,
		UseCustomCredentials: req.UseCustomCredentials,
		TelnetUsername:       req.TelnetUsername,
		VlanInternet:         req.VlanInternet,
		VlanTV:               req.VlanTV,
		VlanVoice:            req.VlanVoice,
	}
	if device.Manufacturer == "" {
		device.Manufacturer = "ZTE"
	}
	if req.UseCustomCredentials {
		sealed, err := security.Encrypt(req.TelnetPassword)
		if err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"success": false,
				"message": "Encryption key not configured; cannot store custom credentials",
			})
		}
		device.TelnetPassword = sealed
	}

	if err := database.DB.Create(&device).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create OLT",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    device,
	})
}

func (h *OltHandler) lookup(c *fiber.Ctx) (*models.Olt, error) {
	var device models.Olt
	err := database.DB.First(&device, "id = ?", c.Params("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "OLT not found",
		})
	}
	if err != nil {
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch OLT",
		})
	}
	return &device, nil
}

// Update edits a device record. An empty telnet_password keeps the stored
// one.
func (h *OltHandler) Update(c *fiber.Ctx) error {
	device, done := h.lookup(c)
	if device == nil {
		return done
	}
	var req oltRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.Name != "" {
		device.Name = req.Name
	}
	if req.IP != "" {
		device.IP = req.IP
	}
	if req.Manufacturer != "" {
		device.Manufacturer = strings.ToUpper(req.Manufacturer)
	}
	if req.Model != "" {
		device.Model = req.Model
	}
	device.UseCustomCredentials = req.UseCustomCredentials
	device.VlanInternet = req.VlanInternet
	device.VlanTV = req.VlanTV
	device.VlanVoice = req.VlanVoice
	if req.TelnetUsername != "" {
		device.TelnetUsername = req.TelnetUsername
	}
	if req.TelnetPassword != "" {
		sealed, err := security.Encrypt(req.TelnetPassword)
		if err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"success": false,
				"message": "Encryption key not configured; cannot store custom credentials",
			})
		}
		device.TelnetPassword = sealed
	}

	if err := database.DB.Save(device).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update OLT",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    device,
	})
}

// Delete removes a device record. ONUs on the device are untouched.
func (h *OltHandler) Delete(c *fiber.Ctx) error {
	device, done := h.lookup(c)
	if device == nil {
		return done
	}
	if err := database.DB.Delete(device).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete OLT",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "OLT removed",
	})
}

// Discover lists unregistered ONUs. Query param tech=GPON|EPON forces the
// listing command; the default follows the device model.
func (h *OltHandler) Discover(c *fiber.Ctx) error {
	device, done := h.lookup(c)
	if device == nil {
		return done
	}
	tech := olt.Tech(strings.ToUpper(c.Query("tech", string(olt.TechAuto))))
	rows, err := h.orch.ListUnregistered(c.Context(), device, tech)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    rows,
	})
}

type provisionRequest struct {
	Username     string           `json:"username"`
	Password     string           `json:"password"`
	Path         string           `json:"path"`
	Slot         int              `json:"slot"`
	Serial       string           `json:"serial"`
	OnuType      string           `json:"onu_type"`
	Mode         string           `json:"mode"`
	VlanInternet int              `json:"vlan_internet"`
	VlanTV       int              `json:"vlan_tv"`
	VlanVoice    int              `json:"vlan_voice"`
	Speed        string           `json:"speed"`
	VoIP         *onu.VoIPAccount `json:"voip"`
}

// Provision registers and configures an ONU for a customer, then persists
// the resulting descriptor on the customer record.
func (h *OltHandler) Provision(c *fiber.Ctx) error {
	device, done := h.lookup(c)
	if device == nil {
		return done
	}
	var req provisionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	var customer models.Customer
	if err := database.DB.Where("username = ?", req.Username).First(&customer).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Customer not found",
		})
	}
	job := onu.Request{
		Username:     customer.Username,
		Password:     req.Password,
		Path:         req.Path,
		Slot:         req.Slot,
		Serial:       req.Serial,
		OnuType:      req.OnuType,
		Mode:         onu.Mode(strings.ToUpper(req.Mode)),
		VlanInternet: req.VlanInternet,
		VlanTV:       req.VlanTV,
		VlanVoice:    req.VlanVoice,
		Speed:        req.Speed,
		VoIP:         req.VoIP,
	}

	report, err := h.orch.ProvisionONU(c.Context(), device, job, func(descriptor string) error {
		return database.DB.Model(&customer).Updates(map[string]interface{}{
			"olt_ip":         device.IP,
			"onu_descriptor": descriptor,
			"onu_serial":     job.Serial,
			"onu_mode":       string(job.Mode),
		}).Error
	})
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
			"kind":    string(naperr.KindOf(err)),
			"report":  report,
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"report":  report,
	})
}

type deleteONURequest struct {
	Username string `json:"username"`
}

// DeleteONU deregisters a customer's ONU and clears the stored descriptor.
func (h *OltHandler) DeleteONU(c *fiber.Ctx) error {
	device, done := h.lookup(c)
	if device == nil {
		return done
	}
	var req deleteONURequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	var customer models.Customer
	if err := database.DB.Where("username = ?", req.Username).First(&customer).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Customer not found",
		})
	}
	if !customer.HasONU() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Customer has no ONU on record",
		})
	}

	report, err := h.orch.DeleteONU(c.Context(), device, customer.OnuDescriptor, func() error {
		return database.DB.Model(&customer).Updates(map[string]interface{}{
			"olt_ip":         "",
			"onu_descriptor": "",
			"onu_serial":     "",
			"onu_mode":       "",
		}).Error
	})
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
			"kind":    string(naperr.KindOf(err)),
			"report":  report,
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"report":  report,
	})
}

// ShowMac locates a MAC address on the device and derives the PPPoE login
// port string.
func (h *OltHandler) ShowMac(c *fiber.Ctx) error {
	device, done := h.lookup(c)
	if device == nil {
		return done
	}
	loc, err := h.orch.ShowMac(c.Context(), device, c.Params("mac"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    loc,
	})
}

// CoreColor maps a fiber core number onto its tube and color.
func (h *OltHandler) CoreColor(c *fiber.Ctx) error {
	n, err := c.ParamsInt("core")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "core must be a number",
		})
	}
	color, err := onu.CoreColor(n, h.cfg.ONUColors)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    color,
	})
}
