package command

import "github.com/xraph/interceder/manifest"

func WithBuildInfo(version, commit, date string) func(app *App) {
	return func(app *App) {
		app.BuildInfo = BuildInfo{
			Version: version,
			Commit:  commit,
			Date:    date,
		}
	}
}

// WithLookup replaces os.LookupEnv for manifest resolution.
func WithLookup(lookup manifest.LookupFunc) func(app *App) {
	return func(app *App) {
		app.Lookup = lookup
	}
}
