// app/bootstrap.go
package app

import (
	"context"
	"log"

	"library-lending/db"
)

// Bootstrap seeds roles, the first admin and the starter catalog on an
// empty database. Safe to run at every startup.
func Bootstrap(ctx context.Context, cfg Config, repo *db.Repo) {
	if err := repo.Seed(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Printf("bootstrap seed failed: %v", err)
		return
	}
	if cfg.AdminPassword == "" {
		log.Printf("[BOOTSTRAP] ADMIN_PASSWORD not set, no admin user created")
	}
}
