// Package interceder provides a configurable webhook relay for Go.
//
// An Interceder receives webhook calls from one party, caches the most
// recent body per topic, and re-emits an equivalent call to a second party
// with remapped headers and an optionally recomputed HMAC signature. Replay
// re-sends the last cached body for a topic without a new inbound event.
//
// Key features:
//   - Manifest-driven header mapping with checked ordering between
//     request-sourced values and their rebuilt counterparts
//   - Topic-keyed payload cache with pluggable backends (file, memory,
//     Redis, SQLite, MongoDB)
//   - HMAC-SHA256 re-signing or signature passthrough
//   - Explicit forward outcomes, surfaced or best-effort
//
// Quick start:
//
//	m, err := manifest.Open("interceder.toml", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store, err := file.New("./payload")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ic, err := interceder.New(
//	    interceder.WithManifest(m),
//	    interceder.WithStore(store),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	http.ListenAndServe(m.Address, api.NewHandler(ic, logger))
package interceder
