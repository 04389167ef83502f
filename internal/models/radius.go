package models

import (
	"time"
)

// The FreeRADIUS schema is authoritative: table and column names below must
// stay bit-compatible with the stock MySQL schema, so every field carries an
// explicit column tag.

// RadCheck represents RADIUS check attributes
type RadCheck struct {
	ID        uint   `gorm:"column:id;primaryKey" json:"id"`
	Username  string `gorm:"column:username;size:64;not null;index" json:"username"`
	Attribute string `gorm:"column:attribute;size:64;not null" json:"attribute"`
	Op        string `gorm:"column:op;size:2;not null;default:':='" json:"op"`
	Value     string `gorm:"column:value;size:253;not null" json:"value"`
}

// RadReply represents RADIUS reply attributes
type RadReply struct {
	ID        uint   `gorm:"column:id;primaryKey" json:"id"`
	Username  string `gorm:"column:username;size:64;not null;index" json:"username"`
	Attribute string `gorm:"column:attribute;size:64;not null" json:"attribute"`
	Op        string `gorm:"column:op;size:2;not null;default:'='" json:"op"`
	Value     string `gorm:"column:value;size:253;not null" json:"value"`
}

// RadGroupReply represents RADIUS group reply attributes
type RadGroupReply struct {
	ID        uint   `gorm:"column:id;primaryKey" json:"id"`
	GroupName string `gorm:"column:groupname;size:64;not null;index" json:"groupname"`
	Attribute string `gorm:"column:attribute;size:64;not null" json:"attribute"`
	Op        string `gorm:"column:op;size:2;not null;default:'='" json:"op"`
	Value     string `gorm:"column:value;size:253;not null" json:"value"`
}

// RadUserGroup represents user to group mapping. The mapper enforces exactly
// one row per username with priority 1.
type RadUserGroup struct {
	Username  string `gorm:"column:username;size:64;not null;index" json:"username"`
	GroupName string `gorm:"column:groupname;size:64;not null" json:"groupname"`
	Priority  int    `gorm:"column:priority;default:1" json:"priority"`
}

// RadAcct represents RADIUS accounting records. Read-only from the core;
// FreeRADIUS itself owns the writes.
type RadAcct struct {
	RadAcctID          int64      `gorm:"column:radacctid;primaryKey" json:"radacctid"`
	AcctSessionID      string     `gorm:"column:acctsessionid;size:64;not null;index" json:"acctsessionid"`
	AcctUniqueID       string     `gorm:"column:acctuniqueid;size:32;uniqueIndex" json:"acctuniqueid"`
	Username           string     `gorm:"column:username;size:64;not null;index" json:"username"`
	NasIPAddress       string     `gorm:"column:nasipaddress;size:15;not null;index" json:"nasipaddress"`
	NasPortID          string     `gorm:"column:nasportid;size:50" json:"nasportid"`
	NasPortType        string     `gorm:"column:nasporttype;size:32" json:"nasporttype"`
	AcctStartTime      *time.Time `gorm:"column:acctstarttime;index" json:"acctstarttime"`
	AcctUpdateTime     *time.Time `gorm:"column:acctupdatetime" json:"acctupdatetime"`
	AcctStopTime       *time.Time `gorm:"column:acctstoptime;index" json:"acctstoptime"`
	AcctSessionTime    int        `gorm:"column:acctsessiontime;default:0" json:"acctsessiontime"`
	AcctInputOctets    int64      `gorm:"column:acctinputoctets;default:0" json:"acctinputoctets"`
	AcctOutputOctets   int64      `gorm:"column:acctoutputoctets;default:0" json:"acctoutputoctets"`
	CalledStationID    string     `gorm:"column:calledstationid;size:50" json:"calledstationid"`
	CallingStationID   string     `gorm:"column:callingstationid;size:50;index" json:"callingstationid"` // MAC Address
	AcctTerminateCause string     `gorm:"column:acctterminatecause;size:32" json:"acctterminatecause"`
	FramedIPAddress    string     `gorm:"column:framedipaddress;size:15;index" json:"framedipaddress"`
	FramedIPv6Prefix   string     `gorm:"column:framedipv6prefix;size:45" json:"framedipv6prefix"`
	FramedInterfaceID  string     `gorm:"column:framedinterfaceid;size:44" json:"framedinterfaceid"`
}

// IsActive reports whether the session is still open.
func (a *RadAcct) IsActive() bool {
	return a.AcctStopTime == nil
}

// RadPostAuth represents post-authentication trace rows. The wire codec
// records its test outcomes here, never the password.
type RadPostAuth struct {
	ID               uint      `gorm:"column:id;primaryKey" json:"id"`
	Username         string    `gorm:"column:username;size:64;not null;index" json:"username"`
	Reply            string    `gorm:"column:reply;size:32" json:"reply"`
	CallingStationID string    `gorm:"column:callingstationid;size:50" json:"callingstationid"`
	AuthDate         time.Time `gorm:"column:authdate;autoCreateTime;index" json:"authdate"`
}

// RadIPPool represents a row of the FreeRADIUS IP pool table. Read-only.
type RadIPPool struct {
	ID              uint   `gorm:"column:id;primaryKey" json:"id"`
	PoolName        string `gorm:"column:pool_name;size:30;not null;index" json:"pool_name"`
	FramedIPAddress string `gorm:"column:framedipaddress;size:15;not null" json:"framedipaddress"`
	PoolKey         string `gorm:"column:pool_key;size:30" json:"pool_key"`
	Username        string `gorm:"column:username;size:64" json:"username"`
}

func (RadCheck) TableName() string {
	return "radcheck"
}

func (RadReply) TableName() string {
	return "radreply"
}

func (RadGroupReply) TableName() string {
	return "radgroupreply"
}

func (RadUserGroup) TableName() string {
	return "radusergroup"
}

func (RadAcct) TableName() string {
	return "radacct"
}

func (RadPostAuth) TableName() string {
	return "radpostauth"
}

func (RadIPPool) TableName() string {
	return "radippool"
}
