// Package testutil starts lifecycle components for tests and stops them
// when the test ends.
//
//	db := testutil.SQLite(t, transcripts.Migrations, transcripts.MigrationsDir, transcripts.Models()...)
//	store := transcripts.NewStore(db.DB())
//
// Components that can be emptied between cases implement TestComponent.
package testutil
