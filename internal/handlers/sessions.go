package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/openisp/naps/internal/database"
	"github.com/openisp/naps/internal/raddb"
)

type SessionHandler struct {
	mapper *raddb.Mapper
	window time.Duration
}

func NewSessionHandler(mapper *raddb.Mapper, window time.Duration) *SessionHandler {
	return &SessionHandler{mapper: mapper, window: window}
}

// filterFromQuery builds the restricted radacct filter from query params.
// Supported: username, nasipaddress, framedipaddress, callingstationid
// (prefix "~" switches to ilike), active=true/false, order_by, desc,
// limit, offset.
func filterFromQuery(c *fiber.Ctx) raddb.SessionFilter {
	filter := raddb.SessionFilter{
		OrderBy: c.Query("order_by"),
		Desc:    c.Query("desc") == "true",
		Limit:   c.QueryInt("limit", 100),
		Offset:  c.QueryInt("offset", 0),
	}

	for _, field := range []string{"username", "nasipaddress", "framedipaddress", "callingstationid"} {
		v := c.Query(field)
		if v == "" {
			continue
		}
		if v[0] == '~' {
			filter.Conds = append(filter.Conds, raddb.Cond{Field: field, Op: "ilike", Value: "%" + v[1:] + "%"})
		} else {
			filter.Conds = append(filter.Conds, raddb.Cond{Field: field, Op: "=", Value: v})
		}
	}

	switch c.Query("active") {
	case "true":
		filter.Conds = append(filter.Conds, raddb.Cond{Field: "acctstoptime", Op: "=", Value: nil})
	case "false":
		filter.Conds = append(filter.Conds, raddb.Cond{Field: "acctstoptime", Op: "!=", Value: nil})
	}
	return filter
}

// List returns accounting sessions matching the query filter.
func (h *SessionHandler) List(c *fiber.Ctx) error {
	filter := filterFromQuery(c)
	sessions, err := h.mapper.ReadSessions(filter)
	if err != nil {
		return fail(c, err)
	}
	total, err := h.mapper.CountSessions(filter)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    sessions,
		"total":   total,
	})
}

// PPPoEStatus returns the ONLINE/OFFLINE aggregate for one username,
// served from the Redis cache when fresh.
func (h *SessionHandler) PPPoEStatus(c *fiber.Ctx) error {
	username := c.Params("username")

	if cached := database.GetCachedPPPoEStatus(username); cached != nil {
		return c.JSON(fiber.Map{
			"success": true,
			"data":    cached,
			"cached":  true,
		})
	}

	rows, err := h.mapper.ReadPPPoEStatus(username, h.window)
	if err != nil {
		return fail(c, err)
	}
	if len(rows) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "No accounting history for " + username,
		})
	}

	st := rows[0]
	database.SetCachedPPPoEStatus(&database.CachedPPPoEStatus{
		Username:        st.Username,
		Online:          st.Online,
		NasIPAddress:    st.NasIPAddress,
		FramedIPAddress: st.FramedIPAddress,
		AcctStartTime:   st.AcctStartTime,
	})
	return c.JSON(fiber.Map{
		"success": true,
		"data":    st,
	})
}

// StatusBoard returns the aggregate for every user with accounting history.
func (h *SessionHandler) StatusBoard(c *fiber.Ctx) error {
	rows, err := h.mapper.ReadPPPoEStatus("", h.window)
	if err != nil {
		return fail(c, err)
	}
	online := 0
	for _, r := range rows {
		if r.Online {
			online++
		}
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    rows,
		"online":  online,
		"total":   len(rows),
	})
}

// Pools summarises radippool occupancy per pool name.
func (h *SessionHandler) Pools(c *fiber.Ctx) error {
	pools, err := h.mapper.ListPools()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    pools,
	})
}

// PoolAddresses lists the address rows of one pool.
func (h *SessionHandler) PoolAddresses(c *fiber.Ctx) error {
	rows, err := h.mapper.PoolAddresses(c.Params("name"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    rows,
	})
}
