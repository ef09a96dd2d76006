// Package database opens lifescribe's transcript database through GORM.
//
// Two drivers are supported: "sqlite" for a single-user setup (the default,
// a file next to the binary) and "postgres" for a shared server. The
// connection is retried on startup, pooled, and logs slow queries through
// the lifescribe logger.
//
// Schema management differs per driver. Postgres runs the versioned SQL
// migrations from the migration subpackage; SQLite uses GORM AutoMigrate.
// Callers pass both to DB.Migrate and the driver picks one.
//
//	db, err := database.Open(ctx, cfg, log)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	err = db.Migrate(ctx, transcripts.Migrations, "migrations", &transcripts.Transcript{})
package database
