package raddb

import (
	"github.com/openisp/naps/internal/models"
)

// PoolSummary is one named address pool with usage counts.
type PoolSummary struct {
	PoolName string `json:"pool_name"`
	Total    int64  `json:"total"`
	Assigned int64  `json:"assigned"`
}

// ListPools summarises radippool by pool name. A row counts as assigned
// when a username currently holds the address.
func (m *Mapper) ListPools() ([]PoolSummary, error) {
	var pools []PoolSummary
	err := m.db.Model(&models.RadIPPool{}).
		Select("pool_name, COUNT(*) AS total, SUM(CASE WHEN username <> '' THEN 1 ELSE 0 END) AS assigned").
		Group("pool_name").
		Order("pool_name").
		Scan(&pools).Error
	if err != nil {
		return nil, wrapDB("list_pools", err)
	}
	return pools, nil
}

// PoolAddresses lists the addresses of one pool.
func (m *Mapper) PoolAddresses(poolName string) ([]models.RadIPPool, error) {
	var rows []models.RadIPPool
	err := m.db.Where("pool_name = ?", poolName).
		Order("framedipaddress").
		Find(&rows).Error
	if err != nil {
		return nil, wrapDB("pool_addresses", err)
	}
	return rows, nil
}
