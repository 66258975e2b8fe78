// Package bootstrap runs the audio transcriber process: it validates the
// typed configuration, initializes logging, starts registered components in
// order, prints a startup summary and shuts everything down on SIGINT or
// SIGTERM.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(ledger)
//	app.RegisterComponent(pipeline)
//	return app.Run(ctx)
//
// RunTask is the finite variant used by the CLI `run` command.
package bootstrap
