package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"smartdate/internal/repository/csvlog"
	"smartdate/internal/repository/sqlite"
)

func main() {
	csvPath := flag.String("csv", "detections_log.csv", "Detection CSV log to import")
	dbPath := flag.String("db", "data/detections.db", "Database path")
	flag.Parse()

	fmt.Printf("Migrating detections from %s to database %s\n", *csvPath, *dbPath)

	records, err := csvlog.NewTable(*csvPath).ReadAll()
	if err != nil {
		log.Fatalf("Failed to read detection log: %v", err)
	}
	if len(records) == 0 {
		fmt.Println("No detections found to migrate")
		return
	}

	// Initialize database
	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	repo := sqlite.NewDetectionRepository(db)
	defer repo.Close()

	ctx := context.Background()

	fmt.Printf("Inserting %d detections into database...\n", len(records))
	if err := repo.InsertBatch(ctx, records); err != nil {
		log.Fatalf("Failed to insert detections: %v", err)
	}
	fmt.Printf("✅ Successfully migrated %d detections to database\n", len(records))

	// Show stats
	y, m, d := time.Now().Date()
	stats, err := repo.Stats(ctx, time.Date(y, m, d, 0, 0, 0, 0, time.Local))
	if err == nil {
		fmt.Printf("\n📊 Database Statistics:\n")
		fmt.Printf("   Total detections: %d\n", stats.Total)
		fmt.Printf("   Average confidence: %.3f\n", stats.AvgConfidence)
		fmt.Printf("   Per label:\n")
		for _, lc := range stats.ByLabel {
			fmt.Printf("      - %s: %d\n", lc.Label, lc.Count)
		}
	}
}
