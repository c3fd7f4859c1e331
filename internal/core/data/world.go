package data

import "gorm.io/gorm"

// World is an entry in the world list sent to clients after login.
type World struct {
	ID        uint8  `gorm:"primaryKey; autoIncrement:false"`
	Name      string `gorm:"not null"`
	IP        string `gorm:"not null"`
	Port      uint16
	Previewer bool
}

// FindWorlds returns every world ordered by id.
func FindWorlds(db *gorm.DB) ([]World, error) {
	var worlds []World
	err := db.Order("id").Find(&worlds).Error
	return worlds, err
}

func CreateWorld(db *gorm.DB, world *World) error {
	return db.Create(world).Error
}
