package database

import (
	"strings"

	"github.com/pathakanu/forgetMeNot/internal/model"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New creates a GORM database connection.
// When databaseURL is provided PostgreSQL is used, otherwise SQLite at sqlitePath.
func New(databaseURL, sqlitePath string) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	if databaseURL != "" {
		db, err = gorm.Open(postgres.Open(databaseURL), gormConfig)
	} else {
		db, err = gorm.Open(sqlite.Open(sqlitePath), gormConfig)
	}
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logBackend(db, sqlitePath)
	return db, nil
}

// Migrate creates or updates the key-value table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.Entry{})
}

func logBackend(db *gorm.DB, sqlitePath string) {
	log := logrus.WithField("component", "database")
	dialector := db.Dialector.Name()
	switch strings.ToLower(dialector) {
	case "postgres":
		log.Info("connected to PostgreSQL")
	case "sqlite":
		log.Infof("using SQLite %s", sqlitePath)
	default:
		log.Infof("connected via %s", dialector)
	}
}
