// Package gorm provides the SQL favorites store built on GORM
package gorm

import "time"

// FavoriteModel is one favorite recipe of one user
type FavoriteModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_favorites_user_recipe,priority:1"`
	RecipeID  string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_favorites_user_recipe,priority:2"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for FavoriteModel
func (FavoriteModel) TableName() string {
	return "favorites"
}
