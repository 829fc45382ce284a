package main

import (
	"fmt"
	"log"

	"mixpool-backend/internal/config"
	"mixpool-backend/internal/db"
)

func main() {
	fmt.Println("🔍 Verifying database connection and pool schema...")

	if err := config.LoadConfig(""); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db.InitDB()

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get database connection: %v", err)
	}
	defer sqlDB.Close()

	var dbName string
	if err := sqlDB.QueryRow("SELECT current_database()").Scan(&dbName); err != nil {
		log.Fatalf("Failed to get database name: %v", err)
	}
	fmt.Printf("📋 Connected to database: %s\n", dbName)

	tables := []string{
		"mixer_commitments",
		"mixer_spent_tokens",
		"mixer_denomination_stats",
		"mixer_pool_config",
		"mixer_fee_changes",
		"mixer_transfer_intents",
	}

	for _, table := range tables {
		var count int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
		if err := sqlDB.QueryRow(query).Scan(&count); err != nil {
			fmt.Printf("❌ %-20s missing or unreadable: %v\n", table, err)
			continue
		}
		fmt.Printf("✅ %-20s %d rows\n", table, count)
	}

	var initialized int64
	if err := sqlDB.QueryRow("SELECT COUNT(*) FROM mixer_pool_config").Scan(&initialized); err == nil {
		if initialized == 0 {
			fmt.Println("\n⚠️ Pool is not initialized yet (POST /api/v1/admin/mixer/init)")
		} else {
			var owner string
			var fee int
			if err := sqlDB.QueryRow("SELECT owner, fee_basis_points FROM mixer_pool_config LIMIT 1").Scan(&owner, &fee); err == nil {
				fmt.Printf("\n📋 Pool initialized: owner=%s fee=%dbp\n", owner, fee)
			}
		}
	}
}
