package raddb

import (
	"log"
	"time"

	"github.com/openisp/naps/internal/models"
	"github.com/openisp/naps/internal/naperr"
	"gorm.io/gorm"
)

// Session is the read-only projection over radacct.
type Session struct {
	AcctSessionID      string     `json:"acctsessionid"`
	Username           string     `json:"username"`
	NasIPAddress       string     `json:"nasipaddress"`
	FramedIPAddress    string     `json:"framedipaddress"`
	AcctStartTime      *time.Time `json:"acctstarttime"`
	AcctUpdateTime     *time.Time `json:"acctupdatetime"`
	AcctStopTime       *time.Time `json:"acctstoptime"`
	AcctInputOctets    int64      `json:"acctinputoctets"`
	AcctOutputOctets   int64      `json:"acctoutputoctets"`
	AcctTerminateCause string     `json:"acctterminatecause"`
	CallingStationID   string     `json:"callingstationid"`
	CalledStationID    string     `json:"calledstationid"`
	IsActive           bool       `json:"is_active"`
}

// Cond is one condition of the restricted session filter domain. A nil
// Value with "=" renders IS NULL, with "!=" renders IS NOT NULL.
type Cond struct {
	Field string
	Op    string // "=", "!=", "like", "ilike"
	Value interface{}
}

// SessionFilter is the restricted query surface over radacct.
type SessionFilter struct {
	Conds   []Cond
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

// sessionFields whitelists the queryable/orderable radacct columns.
var sessionFields = map[string]bool{
	"acctsessionid":      true,
	"username":           true,
	"nasipaddress":       true,
	"framedipaddress":    true,
	"acctstarttime":      true,
	"acctupdatetime":     true,
	"acctstoptime":       true,
	"acctinputoctets":    true,
	"acctoutputoctets":   true,
	"acctterminatecause": true,
	"callingstationid":   true,
	"calledstationid":    true,
}

func (m *Mapper) applySessionFilter(filter SessionFilter) (*gorm.DB, error) {
	q := m.db.Model(&models.RadAcct{})

	for _, c := range filter.Conds {
		if !sessionFields[c.Field] {
			return nil, naperr.New(naperr.InvalidInput, "unknown session field %q", c.Field)
		}
		switch c.Op {
		case "=":
			if c.Value == nil {
				q = q.Where(c.Field + " IS NULL")
			} else {
				q = q.Where(c.Field+" = ?", c.Value)
			}
		case "!=":
			if c.Value == nil {
				q = q.Where(c.Field + " IS NOT NULL")
			} else {
				q = q.Where(c.Field+" <> ?", c.Value)
			}
		case "like":
			q = q.Where(c.Field+" LIKE ?", c.Value)
		case "ilike":
			q = q.Where("LOWER("+c.Field+") LIKE LOWER(?)", c.Value)
		default:
			return nil, naperr.New(naperr.InvalidInput, "unsupported filter operator %q", c.Op)
		}
	}

	if filter.OrderBy != "" {
		if !sessionFields[filter.OrderBy] {
			return nil, naperr.New(naperr.InvalidInput, "unknown order field %q", filter.OrderBy)
		}
		order := filter.OrderBy
		if filter.Desc {
			order += " DESC"
		}
		q = q.Order(order)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	return q, nil
}

// ReadSessions selects the session projection under the filter domain.
func (m *Mapper) ReadSessions(filter SessionFilter) ([]Session, error) {
	q, err := m.applySessionFilter(filter)
	if err != nil {
		return nil, err
	}

	var rows []models.RadAcct
	if err := q.Find(&rows).Error; err != nil {
		return nil, wrapDB("read_sessions", err)
	}

	sessions := make([]Session, len(rows))
	for i, r := range rows {
		sessions[i] = projectSession(&r)
	}
	return sessions, nil
}

func projectSession(r *models.RadAcct) Session {
	return Session{
		AcctSessionID:      r.AcctSessionID,
		Username:           r.Username,
		NasIPAddress:       r.NasIPAddress,
		FramedIPAddress:    r.FramedIPAddress,
		AcctStartTime:      r.AcctStartTime,
		AcctUpdateTime:     r.AcctUpdateTime,
		AcctStopTime:       r.AcctStopTime,
		AcctInputOctets:    r.AcctInputOctets,
		AcctOutputOctets:   r.AcctOutputOctets,
		AcctTerminateCause: r.AcctTerminateCause,
		CallingStationID:   r.CallingStationID,
		CalledStationID:    r.CalledStationID,
		IsActive:           r.IsActive(),
	}
}

// CountSessions counts rows under the same filter domain.
func (m *Mapper) CountSessions(filter SessionFilter) (int64, error) {
	filter.Limit, filter.Offset, filter.OrderBy = 0, 0, ""
	q, err := m.applySessionFilter(filter)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, wrapDB("count_sessions", err)
	}
	return count, nil
}

// PPPoEStatus is the per-username aggregate over the most recent session.
type PPPoEStatus struct {
	Username        string     `json:"username"`
	Online          bool       `json:"online"`
	NasIPAddress    string     `json:"nasipaddress"`
	FramedIPAddress string     `json:"framedipaddress"`
	CallingStation  string     `json:"callingstationid"`
	AcctStartTime   *time.Time `json:"acctstarttime"`
	AcctUpdateTime  *time.Time `json:"acctupdatetime"`
	AcctStopTime    *time.Time `json:"acctstoptime"`
}

// ReadPPPoEStatus takes, per username, the row with the maximum
// acctstarttime and marks it ONLINE iff the session is open and the last
// interim update is within the freshness window. Pass username "" for all
// users.
func (m *Mapper) ReadPPPoEStatus(username string, window time.Duration) ([]PPPoEStatus, error) {
	query := `SELECT a.* FROM radacct a
		INNER JOIN (
			SELECT username, MAX(acctstarttime) AS maxstart
			FROM radacct GROUP BY username
		) latest ON a.username = latest.username AND a.acctstarttime = latest.maxstart`
	args := []interface{}{}
	if username != "" {
		query += " WHERE a.username = ?"
		args = append(args, username)
	}

	var rows []models.RadAcct
	if err := m.db.Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, wrapDB("read_pppoe_status", err)
	}

	cutoff := time.Now().Add(-window)
	statuses := make([]PPPoEStatus, len(rows))
	for i, r := range rows {
		online := r.AcctStopTime == nil &&
			(r.AcctUpdateTime == nil || r.AcctUpdateTime.After(cutoff))
		statuses[i] = PPPoEStatus{
			Username:        r.Username,
			Online:          online,
			NasIPAddress:    r.NasIPAddress,
			FramedIPAddress: r.FramedIPAddress,
			CallingStation:  r.CallingStationID,
			AcctStartTime:   r.AcctStartTime,
			AcctUpdateTime:  r.AcctUpdateTime,
			AcctStopTime:    r.AcctStopTime,
		}
	}
	return statuses, nil
}

// LogPostAuth records a wire-codec test outcome. Best effort; the password
// is never stored.
func (m *Mapper) LogPostAuth(username, callingStationID, reply string) {
	row := models.RadPostAuth{
		Username:         username,
		Reply:            reply,
		CallingStationID: callingStationID,
	}
	if err := m.db.Create(&row).Error; err != nil {
		// Trace table only; never fail the caller over it.
		log.Printf("Warning: radpostauth trace insert failed: %v", err)
	}
}
