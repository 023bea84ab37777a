// Package lifecycle holds shared start and stop settings for long-running components.
package lifecycle

import "time"

// DefaultTimeout bounds startup checks and graceful shutdown of servers and connections.
const DefaultTimeout = 10 * time.Second
