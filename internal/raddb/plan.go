package raddb

import (
	"strconv"
	"strings"

	"github.com/openisp/naps/internal/models"
	"github.com/openisp/naps/internal/naperr"
	"gorm.io/gorm"
)

// Plan is a service plan as handed in by the caller. Code becomes the PLAN
// half of the group name; the convenience fields are folded into
// radgroupreply attributes unless the caller supplied the same attribute
// explicitly in Extra.
type Plan struct {
	Code                string
	RateLimit           string // "DOWN" or "UP/DOWN" in Mbps
	SessionTimeout      int
	IdleTimeout         int
	AcctInterimInterval int
	IPPoolActive        string
	CiscoServicePolicy  string // rendered as a Cisco-AVPair
	Extra               []Attr // operator-supplied raw attributes, win over convenience fields
}

// PlanDefaults are the attribute values injected when neither the plan nor
// its extra attributes carry them.
type PlanDefaults struct {
	AcctInterimInterval int
	IdleTimeout         int
}

// BuildPlanAttrs renders the full radgroupreply attribute set for a plan.
// Convenience fields are only injected when the operator did not supply
// their own attribute of the same name.
func BuildPlanAttrs(plan Plan, defaults PlanDefaults) []Attr {
	attrs := make([]Attr, 0, len(plan.Extra)+6)
	seen := make(map[string]bool, len(plan.Extra))

	for _, a := range plan.Extra {
		attrs = append(attrs, a)
		seen[a.Attribute] = true
	}

	add := func(attribute, value string) {
		if value == "" || seen[attribute] {
			return
		}
		attrs = append(attrs, Attr{Attribute: attribute, Op: ":=", Value: value})
		seen[attribute] = true
	}

	add("Mikrotik-Rate-Limit", normalizeRateLimit(plan.RateLimit))
	if plan.SessionTimeout > 0 {
		add("Session-Timeout", strconv.Itoa(plan.SessionTimeout))
	}
	add("Framed-Pool", plan.IPPoolActive)
	if plan.CiscoServicePolicy != "" {
		add("Cisco-AVPair", "subscriber:service-policy="+plan.CiscoServicePolicy)
	}

	// Schema defaults every managed plan carries.
	interim := plan.AcctInterimInterval
	if interim <= 0 {
		interim = defaults.AcctInterimInterval
	}
	add("Acct-Interim-Interval", strconv.Itoa(interim))

	idle := plan.IdleTimeout
	if idle <= 0 {
		idle = defaults.IdleTimeout
	}
	add("Idle-Timeout", strconv.Itoa(idle))

	return attrs
}

// normalizeRateLimit renders Mikrotik's UP/DOWN form. A bare "DOWN" value
// is mirrored to both directions.
func normalizeRateLimit(rate string) string {
	rate = strings.TrimSpace(rate)
	if rate == "" {
		return ""
	}
	if !strings.Contains(rate, "/") {
		return rate + "/" + rate
	}
	return rate
}

// UpsertPlan replaces the radgroupreply set for groupname with attrs, in one
// transaction. The set is a complete replacement: re-running with the same
// inputs leaves the table byte-identical.
func (m *Mapper) UpsertPlan(groupname string, attrs []Attr) error {
	if groupname == "" {
		return naperr.New(naperr.InvalidInput, "empty groupname")
	}
	if err := validateOps(attrs); err != nil {
		return err
	}
	err := m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("groupname = ?", groupname).Delete(&models.RadGroupReply{}).Error; err != nil {
			return err
		}
		for _, a := range attrs {
			row := models.RadGroupReply{GroupName: groupname, Attribute: a.Attribute, Op: a.Op, Value: a.Value}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return wrapDB("upsert_plan", err)
}

// RemovePlan deletes all radgroupreply rows for groupname.
func (m *Mapper) RemovePlan(groupname string) error {
	err := m.db.Where("groupname = ?", groupname).Delete(&models.RadGroupReply{}).Error
	return wrapDB("remove_plan", err)
}

// PlanAttrs reads back the current attribute set for a groupname.
func (m *Mapper) PlanAttrs(groupname string) ([]Attr, error) {
	var rows []models.RadGroupReply
	if err := m.db.Where("groupname = ?", groupname).Order("attribute ASC").Find(&rows).Error; err != nil {
		return nil, wrapDB("plan_attrs", err)
	}
	attrs := make([]Attr, len(rows))
	for i, r := range rows {
		attrs[i] = Attr{Attribute: r.Attribute, Op: r.Op, Value: r.Value}
	}
	return attrs, nil
}
