package server

import "time"

// The daemon serves a single scoring UI on the local network, so reads
// are quick, but status and snapshot responses can be chatty and the UI
// keeps connections open between ends.
const (
	readTimeout  = 5 * time.Second
	writeTimeout = 15 * time.Second
	idleTimeout  = 2 * time.Minute
)

// shutdownTimeout is a var so tests can shorten it.
var shutdownTimeout = 5 * time.Second
