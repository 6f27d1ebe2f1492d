//go:build !linux

package frontend

import "fmt"

// ApplyAffinity is a no-op stub outside Linux, where CPU affinity and
// real-time priority (SPEC_FULL supplemented feature 4) aren't
// meaningfully portable.
func ApplyAffinity(cpus []int, prio int) error {
	if len(cpus) > 0 || prio != 0 {
		return fmt.Errorf("frontend: affinity/prio not supported on this platform")
	}
	return nil
}
