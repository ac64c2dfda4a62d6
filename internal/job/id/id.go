// Package id provides unique identifier generation for runs and jobs.
package id

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Generate creates a new unique identifier with the given prefix.
// Format: <prefix>-<timestamp>-<random>
// Example: job-1701432000-a1b2c3d4
func Generate(prefix string) string {
	random := uuid.New()
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().Unix(), random.String()[:8])
}
