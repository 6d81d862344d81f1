package database

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned by lookups that matched no record.
var ErrNotFound = errors.New("record not found")

// Database is the persistence gateway for users, conversations and messages.
type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
