package repository

import (
	"gorm.io/gorm"
)

// TillScope returns a GORM scope that filters journal rows by till. An empty
// till id leaves the query unfiltered (store-wide history).
func TillScope(tillID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tillID == "" {
			return db
		}
		return db.Where("till_id = ?", tillID)
	}
}
