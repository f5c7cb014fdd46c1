package database

import "dumdummies/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Channel{},
		&models.Challenge{},
		&models.Donation{},
		&models.ChatMessage{},
		&models.StreamSession{},
		&models.SecurityViolation{},
	}
}
