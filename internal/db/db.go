package db

import (
	"log"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/inkwell-app/inkwell/internal/chat"
)

// Connect opens the database behind the DSN and migrates the chat schema.
// A "sqlite:" prefix selects the embedded driver (the desktop default);
// anything else is treated as a mysql DSN.
func Connect(dsn string) *gorm.DB {
	var dial gorm.Dialector
	if path, ok := strings.CutPrefix(dsn, "sqlite:"); ok {
		dial = sqlite.Open(path)
	} else {
		dial = mysql.Open(dsn)
	}

	gdb, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	if err := gdb.AutoMigrate(&chat.Session{}, &chat.Message{}, &chat.TurnJob{}); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	return gdb
}
