//go:build linux

package frontend

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// ApplyAffinity pins the calling OS thread to the CPU set named by the
// [global] affinity key (SPEC_FULL supplemented feature 4) and raises
// its scheduling priority via prio. Both are best-effort: callers log
// and continue on failure rather than treating it as fatal, since a
// missing CAP_SYS_NICE or an invalid CPU list shouldn't stop the daemon.
//
// The caller must have already called runtime.LockOSThread, since CPU
// affinity in Linux is a per-thread, not per-process, attribute.
func ApplyAffinity(cpus []int, prio int) error {
	if len(cpus) > 0 {
		var set unix.CPUSet
		set.Zero()
		for _, c := range cpus {
			if c < 0 {
				return fmt.Errorf("frontend: invalid affinity cpu %d", c)
			}
			set.Set(c)
		}
		if err := unix.SchedSetaffinity(0, &set); err != nil {
			return fmt.Errorf("frontend: sched_setaffinity: %w", err)
		}
	}
	if prio != 0 {
		if err := unix.Setpriority(unix.PRIO_PROCESS, 0, prio); err != nil {
			return fmt.Errorf("frontend: setpriority(%d): %w", prio, err)
		}
	}
	return nil
}
