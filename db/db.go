package db

import (
	"strings"

	"gallery/config"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var Instance *gorm.DB

func Init() {
	var dialector gorm.Dialector
	if config.MYSQL_DSN != "" {
		dialector = mysql.Open(config.MYSQL_DSN)
	} else {
		dialector = sqlite.Open(config.SQLITE_FILE + "?_foreign_keys=1")
	}
	if err := Open(dialector, true); err != nil || Instance == nil {
		panic(err)
	}
}

// Open connects and replaces Instance
func Open(dialector gorm.Dialector, prepareStmt bool) error {
	logLevel := logger.Warn
	if config.DEBUG_MODE {
		logLevel = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		PrepareStmt:            prepareStmt,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return err
	}
	Instance = db
	return nil
}

// OpenMemory opens a private in-memory SQLite database, used by tests
func OpenMemory(name string) error {
	name = strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(name)
	err := Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared&_foreign_keys=1"), false)
	if err != nil {
		return err
	}
	sqlDB, err := Instance.DB()
	if err != nil {
		return err
	}
	// A single connection keeps the shared in-memory database alive and serialises writers
	sqlDB.SetMaxOpenConns(1)
	return nil
}
