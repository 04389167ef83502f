package raddb

import (
	"errors"
	"strconv"
	"strings"

	"github.com/openisp/naps/internal/models"
	"github.com/openisp/naps/internal/naperr"
	"gorm.io/gorm"
)

// Mapper performs idempotent writes against the FreeRADIUS schema. Every
// write runs inside one transaction; on any error the whole transaction
// rolls back.
type Mapper struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Mapper {
	return &Mapper{db: db}
}

// ParsePorts coerces the nas.ports value to an integer or NULL. Historical
// records sometimes carried comma lists; only the first value counts.
func ParsePorts(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if i := strings.IndexByte(raw, ','); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}

// UpsertNAS inserts or updates the nas row keyed on nasname.
func (m *Mapper) UpsertNAS(nas *models.Nas) error {
	err := m.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Nas
		err := tx.Where("nasname = ?", nas.NasName).First(&existing).Error
		switch {
		case err == nil:
			nas.ID = existing.ID
			return tx.Model(&models.Nas{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
				"shortname":   nas.ShortName,
				"type":        nas.Type,
				"ports":       nas.Ports,
				"secret":      nas.Secret,
				"server":      nas.Server,
				"community":   nas.Community,
				"description": nas.Description,
			}).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(nas).Error
		default:
			return err
		}
	})
	return wrapDB("upsert_nas", err)
}

// RemoveNAS deletes by nasname. Removing an absent row is not an error.
func (m *Mapper) RemoveNAS(nasname string) error {
	err := m.db.Where("nasname = ?", nasname).Delete(&models.Nas{}).Error
	return wrapDB("remove_nas", err)
}

// RemoveNASByID deletes by primary key.
func (m *Mapper) RemoveNASByID(id uint) error {
	err := m.db.Delete(&models.Nas{}, id).Error
	return wrapDB("remove_nas", err)
}

// ListNAS returns all nas rows ordered by nasname.
func (m *Mapper) ListNAS() ([]models.Nas, error) {
	var list []models.Nas
	if err := m.db.Order("nasname ASC").Find(&list).Error; err != nil {
		return nil, wrapDB("list_nas", err)
	}
	for i := range list {
		list[i].HasSecret = list[i].Secret != ""
	}
	return list, nil
}

// SetUser upserts the Cleartext-Password radcheck row and moves the user to
// groupname, enforcing the single radusergroup row invariant.
func (m *Mapper) SetUser(username, password, groupname string) error {
	if username == "" {
		return naperr.New(naperr.InvalidInput, "empty username")
	}
	err := m.db.Transaction(func(tx *gorm.DB) error {
		if err := upsertCheckPassword(tx, username, password); err != nil {
			return err
		}
		return setUserGroup(tx, username, groupname)
	})
	return wrapDB("set_user", err)
}

// managedReplyAttrs is the set of radreply attributes the mapper owns.
// Everything in it is wiped on SetUserReply before the desired rows go in,
// so attributes an operator removed actually disappear.
var managedReplyAttrs = []string{
	"Framed-IP-Address",
	"Framed-IPv6-Prefix",
	"Mikrotik-Rate-Limit",
	"Framed-Pool",
	"Cisco-AVPair",
}

// SetUserReply replaces the managed per-user reply attributes with the
// desired set.
func (m *Mapper) SetUserReply(username string, attrs []Attr) error {
	if err := validateOps(attrs); err != nil {
		return err
	}
	err := m.db.Transaction(func(tx *gorm.DB) error {
		wipe := make([]string, 0, len(managedReplyAttrs)+len(attrs))
		wipe = append(wipe, managedReplyAttrs...)
		for _, a := range attrs {
			wipe = append(wipe, a.Attribute)
		}

		if err := tx.Where("username = ? AND attribute IN ?", username, wipe).
			Delete(&models.RadReply{}).Error; err != nil {
			return err
		}

		for _, a := range attrs {
			row := models.RadReply{Username: username, Attribute: a.Attribute, Op: a.Op, Value: a.Value}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return wrapDB("set_user_reply", err)
}

// Suspend parks the user in the company's SUSPENDED group, materialising
// that group's Reply-Message row on first use.
func (m *Mapper) Suspend(username, companyCode string) error {
	group := SuspendedGroupName(companyCode)
	err := m.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.RadGroupReply{}).
			Where("groupname = ? AND attribute = ?", group, "Reply-Message").
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			row := models.RadGroupReply{GroupName: group, Attribute: "Reply-Message", Op: ":=", Value: "Suspended"}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return setUserGroup(tx, username, group)
	})
	return wrapDB("suspend", err)
}

// Reactivate moves the user back to the given plan group.
func (m *Mapper) Reactivate(username, planGroupname string) error {
	err := m.db.Transaction(func(tx *gorm.DB) error {
		return setUserGroup(tx, username, planGroupname)
	})
	return wrapDB("reactivate", err)
}

// RemoveUser deletes the user's radreply, radcheck and radusergroup rows.
// radacct is never touched; accounting history outlives the subscriber.
func (m *Mapper) RemoveUser(username string) error {
	err := m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("username = ?", username).Delete(&models.RadReply{}).Error; err != nil {
			return err
		}
		if err := tx.Where("username = ?", username).Delete(&models.RadCheck{}).Error; err != nil {
			return err
		}
		return tx.Where("username = ?", username).Delete(&models.RadUserGroup{}).Error
	})
	return wrapDB("remove_user", err)
}

// UserState derives the lifecycle state from the radusergroup row.
func (m *Mapper) UserState(username string) (UserState, error) {
	var row models.RadUserGroup
	err := m.db.Where("username = ?", username).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return StateRemoved, nil
	}
	if err != nil {
		return StateUnknown, wrapDB("user_state", err)
	}
	return StateOfGroup(row.GroupName), nil
}

// UserGroupCount is used by invariant checks and tests.
func (m *Mapper) UserGroupCount(username string) (int64, error) {
	var count int64
	err := m.db.Model(&models.RadUserGroup{}).Where("username = ?", username).Count(&count).Error
	return count, wrapDB("user_group_count", err)
}

func upsertCheckPassword(tx *gorm.DB, username, password string) error {
	var existing models.RadCheck
	err := tx.Where("username = ? AND attribute = ?", username, "Cleartext-Password").First(&existing).Error
	switch {
	case err == nil:
		return tx.Model(&models.RadCheck{}).Where("id = ?", existing.ID).
			Updates(map[string]interface{}{"op": ":=", "value": password}).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := models.RadCheck{Username: username, Attribute: "Cleartext-Password", Op: ":=", Value: password}
		return tx.Create(&row).Error
	default:
		return err
	}
}

// setUserGroup enforces the invariant: exactly one radusergroup row per
// username, priority 1.
func setUserGroup(tx *gorm.DB, username, groupname string) error {
	if err := tx.Where("username = ?", username).Delete(&models.RadUserGroup{}).Error; err != nil {
		return err
	}
	row := models.RadUserGroup{Username: username, GroupName: groupname, Priority: 1}
	return tx.Create(&row).Error
}
