// Package supervisor handles process-level concerns: termination
// signals, verbosity adjustment, and periodic CPU accounting (spec.md
// §4.9). Its start/stop-ticker/wg shutdown shape and its use of
// github.com/shirou/gopsutil/v3/cpu are grounded on the teacher's
// load_history.go (LoadHistoryTracker).
package supervisor

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

// ExitCode mirrors the sysexits.h values spec.md §9 requires the daemon
// to preserve.
type ExitCode int

const (
	ExitOK          ExitCode = 0
	ExitUsage       ExitCode = 64 // EX_USAGE
	ExitNoInput     ExitCode = 66 // EX_NOINPUT
	ExitNoHost      ExitCode = 68 // EX_NOHOST
	ExitUnavailable ExitCode = 69 // EX_UNAVAILABLE
	ExitSoftware    ExitCode = 70 // EX_SOFTWARE
)

// Supervisor owns the daemon's signal handling and CPU accounting loop.
type Supervisor struct {
	verbosity int32 // atomic; USR1 increments, USR2 decrements, floor 0

	ctx    context.Context
	cancel context.CancelFunc

	cpuTicker *time.Ticker
	wg        sync.WaitGroup

	lastCumulative time.Duration
}

// New returns a Supervisor with the given starting verbosity.
func New(verbosity int) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{verbosity: int32(verbosity), ctx: ctx, cancel: cancel}
}

// Verbosity returns the current verbosity level.
func (s *Supervisor) Verbosity() int {
	return int(atomic.LoadInt32(&s.verbosity))
}

// Done returns a channel closed when a termination signal has been
// received, for callers that want to select on shutdown directly rather
// than polling Context().
func (s *Supervisor) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Context returns the supervisor's cancellation context.
func (s *Supervisor) Context() context.Context {
	return s.ctx
}

// Run installs signal handlers and blocks until a terminating signal
// arrives, then returns the exit code to use (spec.md §4.9 and
// original_source/main.c's "_exit(a == SIGTERM ? EX_OK : EX_SOFTWARE)"):
// TERM requests an orderly shutdown and exits 0 once drain completes,
// while INT and QUIT always exit 70 even on a clean drain; any of the
// three still exits 70 if drain itself times out. PIPE is ignored
// outright; USR1/USR2 adjust verbosity without stopping.
func (s *Supervisor) Run() ExitCode {
	sigCh := make(chan os.Signal, 8)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGPIPE, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(sigCh)

	for sig := range sigCh {
		switch sig {
		case syscall.SIGPIPE:
			continue
		case syscall.SIGUSR1:
			atomic.AddInt32(&s.verbosity, 1)
			log.Printf("[supervisor] verbosity now %d", s.Verbosity())
			continue
		case syscall.SIGUSR2:
			for {
				cur := atomic.LoadInt32(&s.verbosity)
				if cur == 0 {
					break
				}
				if atomic.CompareAndSwapInt32(&s.verbosity, cur, cur-1) {
					break
				}
			}
			log.Printf("[supervisor] verbosity now %d", s.Verbosity())
			continue
		case syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM:
			log.Printf("[supervisor] received %v, shutting down", sig)
			s.cancel()
			return s.drain(sig == syscall.SIGTERM)
		}
	}
	return ExitOK
}

// drain gives in-flight work one second to notice cancellation before
// the process exits. clean selects the code to return if the drain
// finishes in time: ExitOK for SIGTERM, ExitSoftware for SIGINT/SIGQUIT
// (spec.md §4.9). A drain timeout always exits ExitSoftware regardless
// of which signal triggered it.
func (s *Supervisor) drain(clean bool) ExitCode {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		if clean {
			return ExitOK
		}
		return ExitSoftware
	case <-time.After(time.Second):
		log.Printf("[supervisor] shutdown drain timed out")
		return ExitSoftware
	}
}

// StartCPUAccounting runs a once-per-minute CPU accounting loop while
// verbose (spec.md §4.9). Each sample logs the system-wide CPU
// percentage since the previous sample, the cumulative system-wide
// user+system CPU time, and that time's change since the previous
// sample. The figures are for the whole host, not this process, and no
// cumulative percentage is computed. It returns immediately; the loop
// stops when the supervisor's context is cancelled.
func (s *Supervisor) StartCPUAccounting() {
	s.cpuTicker = time.NewTicker(time.Minute)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.cpuTicker.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-s.cpuTicker.C:
				s.sampleCPU()
			}
		}
	}()
}

func (s *Supervisor) sampleCPU() {
	if s.Verbosity() <= 0 {
		return
	}
	percents, err := cpu.Percent(0, false)
	if err != nil || len(percents) == 0 {
		log.Printf("[supervisor] cpu.Percent: %v", err)
		return
	}
	times, err := cpu.Times(false)
	if err != nil || len(times) == 0 {
		log.Printf("[supervisor] cpu.Times: %v", err)
		return
	}
	cumulative := time.Duration((times[0].User + times[0].System) * float64(time.Second))
	delta := cumulative - s.lastCumulative
	s.lastCumulative = cumulative
	log.Printf("[supervisor] cpu interval=%.1f%% cumulative=%s delta=%s", percents[0], cumulative, delta)
}
