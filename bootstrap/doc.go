// Package bootstrap runs a lifescribe entry point: it starts the registered
// components, runs lifecycle hooks and shuts everything down in reverse
// order.
//
// Long-running commands use Run, which blocks until SIGINT or SIGTERM:
//
//	app, err := bootstrap.NewApp(cfg)
//	app.RegisterComponent(db)
//	app.RegisterComponent(server)
//	err = app.Run(ctx)
//
// Finite commands use RunTask; a signal cancels the task's context:
//
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    return runner.Run(ctx)
//	})
package bootstrap
