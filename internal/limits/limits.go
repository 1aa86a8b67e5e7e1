// Package limits holds the protocol-wide size and timing constants shared
// by the netstring/SCGI codec, the target connector, and both relays.
package limits

import "time"

const (
	// MaxHeaderBytes is the largest SCGI header netstring payload accepted.
	MaxHeaderBytes = 65536

	// MaxBody is the largest SCGI request body accepted.
	MaxBody = 10 * 1024 * 1024

	// MaxResp is the largest number of bytes drained from the target per request.
	MaxResp = 10 * 1024 * 1024

	// BufSize is the Frontend's per-tick client read buffer size.
	BufSize = 65536
)

const (
	// InitialDelay is the Frontend's poll interval after any activity.
	InitialDelay = 100 * time.Millisecond

	// MaxDelay is the ceiling the Frontend's idle poll interval backs off to.
	MaxDelay = 10 * time.Second
)
