package database

import (
	"testing"

	"imposter-game-backend/internal/config"
	"imposter-game-backend/internal/models"
)

func TestConnectSQLiteAndMigrate(t *testing.T) {
	cfg := &config.Config{
		StoreBackend: config.BackendSQLite,
		SQLitePath:   "file:database_test?mode=memory&cache=shared",
	}
	db, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	for _, table := range []interface{}{&models.Session{}, &models.Player{}, &models.Vote{}, &models.EventLog{}} {
		if !db.Migrator().HasTable(table) {
			t.Fatalf("table for %T missing", table)
		}
	}
}

func TestConnectMemoryBackendHasNoDatabase(t *testing.T) {
	if _, err := Connect(&config.Config{StoreBackend: config.BackendMemory}); err == nil {
		t.Fatal("expected error for memory backend")
	}
}
