package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/common/database"
	"github.com/samalpartha/CareCircle-sub001/internal/config"
	"github.com/samalpartha/CareCircle-sub001/internal/ledger"
	"github.com/samalpartha/CareCircle-sub001/internal/repository"

	"go.uber.org/zap"
)

const usage = `usage:
  careops-check queue [family_id...]
  careops-check timeline <subject_id> [days]
  careops-check report <subject_id> <days> <out.xlsx>`

func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	logger := zap.NewNop()

	switch os.Args[1] {
	case "queue":
		checkQueue(ctx, repository.NewQueueItemRepository(db, logger), os.Args[2:])
	case "timeline":
		if len(os.Args) < 3 {
			log.Fatal(usage)
		}
		days := 7
		if len(os.Args) > 3 {
			days = parseInt(os.Args[3], days)
		}
		checkTimeline(ctx, repository.NewTimelineRepository(db, logger), os.Args[2], days)
	case "report":
		if len(os.Args) < 5 {
			log.Fatal(usage)
		}
		writeReport(ctx, repository.NewTimelineRepository(db, logger), os.Args[2], parseInt(os.Args[3], 30), os.Args[4])
	default:
		log.Fatal(usage)
	}
}

func checkQueue(ctx context.Context, repo *repository.QueueItemRepository, familyIDs []string) {
	items, err := repo.ListOpen(ctx, familyIDs...)
	if err != nil {
		log.Fatalf("Failed to query queue: %v", err)
	}

	fmt.Printf("=== Open queue items (%d) ===\n\n", len(items))
	fmt.Printf("%-36s %-10s %-8s %-12s %-20s %-4s %-20s %s\n",
		"id", "type", "severity", "status", "assignee", "esc", "due_at", "title")
	fmt.Println(strings.Repeat("-", 140))
	for _, item := range items {
		fmt.Printf("%-36s %-10s %-8s %-12s %-20s %-4d %-20s %s\n",
			item.ID, item.Type, item.Severity, item.Status, orNull(item.AssigneeID),
			item.EscalationCount, item.DueAt.Format("2006-01-02 15:04"), item.Title)
	}
}

func checkTimeline(ctx context.Context, repo *repository.TimelineRepository, subjectID string, days int) {
	from := time.Now().AddDate(0, 0, -days)
	entries, err := repo.ListBySubject(ctx, subjectID, from, time.Time{})
	if err != nil {
		log.Fatalf("Failed to query timeline: %v", err)
	}

	fmt.Printf("=== Timeline of %s, last %d days (%d entries) ===\n\n", subjectID, days, len(entries))
	fmt.Printf("%-20s %-22s %-20s %s\n", "timestamp", "event_type", "recorded_by", "title")
	fmt.Println(strings.Repeat("-", 120))
	for _, e := range entries {
		fmt.Printf("%-20s %-22s %-20s %s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"), e.EventType, orNull(e.RecordedBy), e.Title)
	}
}

func writeReport(ctx context.Context, repo *repository.TimelineRepository, subjectID string, days int, path string) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)
	entries, err := repo.ListBySubject(ctx, subjectID, start, end)
	if err != nil {
		log.Fatalf("Failed to query timeline: %v", err)
	}

	l := ledger.NewLedger(nil, nil)
	l.Hydrate(entries)
	report := l.ExportForMedicalReport(subjectID, start, end, end)

	data, err := ledger.WriteMedicalReportXLSX(report)
	if err != nil {
		log.Fatalf("Failed to build report: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", path, err)
	}
	fmt.Printf("Wrote %s: %d entries, %d alerts, %d completed tasks\n",
		path, report.TotalEntries, report.Alerts, report.CompletedTasks)
}

func orNull(s string) string {
	if s == "" {
		return "NULL"
	}
	return s
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
