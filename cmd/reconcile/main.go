// Command reconcile recomputes every user's storage_used from the sizes of
// their registered files plus the reservations of uploads still in flight.
// Run it after crashes or failed deletes.
//
// Reservations left by uploads that died mid-way are kept unless
// RECONCILE_DROP_RESERVATIONS=true. Set it only with the API stopped: a
// running upload has no file row yet, and dropping its reservation lets the
// user exceed the quota.
package main

import (
	"context"
	"log"
	"os"

	"filevault/internal/config"
	"filevault/internal/database"
	"filevault/internal/domain/user"
	"filevault/internal/logging"
	"filevault/internal/pkg/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel)
	ctx := context.Background()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	ledger := user.NewLedger(user.NewRepository(db, cfg.DBTimeout), cfg.DefaultQuota, logger)
	policy := retry.Default()
	drop := os.Getenv("RECONCILE_DROP_RESERVATIONS") == "true"

	var ids []string
	if err := policy.Do(ctx, func(ctx context.Context) error {
		ids, err = ledger.UserIDs(ctx)
		return err
	}); err != nil {
		log.Fatalf("list users failed: %v", err)
	}

	failed := 0
	for _, id := range ids {
		err := policy.Do(ctx, func(ctx context.Context) error {
			if drop {
				if err := ledger.DropReservations(ctx, id); err != nil {
					return err
				}
			}
			_, err := ledger.Reconcile(ctx, id)
			return err
		})
		if err != nil {
			failed++
			logger.Error(ctx, "reconcile failed", "user_id", id, "error", err)
		}
	}

	logger.Info(ctx, "reconcile completed", "users", len(ids), "failed", failed, "dropped_reservations", drop)
	if failed > 0 {
		os.Exit(1)
	}
}
