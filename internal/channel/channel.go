package channel

import (
	"sync"
	"sync/atomic"

	"github.com/openradiod/radiod/internal/frontend"
	"github.com/openradiod/radiod/internal/template"
)

// Channel is one live demodulator pipeline (spec.md §3). All channels
// share the process's multicast send sockets (spec.md §4.5); a Channel
// only carries the resolved destination addresses and its own counters.
// Counters are atomic so RTCP/metrics readers never need to take the
// registry lock; per spec.md §5 ("never hold the registry lock across a
// socket operation"), everything below Registry is owned by the channel
// itself.
type Channel struct {
	SSRC     uint32
	Section  string
	Frontend *frontend.Frontend

	Output template.Output
	Status template.Status
	Params map[string]string
	SAP    bool
	RTCP   bool

	FreqHz float64

	seq      uint32
	rtpBytes uint64
	errors   uint64

	idleBlocks int64
	lifetime   int64

	mu sync.Mutex // guards FreqHz and command-driven template fields only
}

// NextSeq returns the next RTP sequence number and advances the
// counter.
func (c *Channel) NextSeq() uint32 {
	return atomic.AddUint32(&c.seq, 1)
}

// AddBytes accounts for an RTP payload just sent.
func (c *Channel) AddBytes(n int) {
	atomic.AddUint64(&c.rtpBytes, uint64(n))
}

// Bytes returns the cumulative RTP payload byte count.
func (c *Channel) Bytes() uint64 {
	return atomic.LoadUint64(&c.rtpBytes)
}

// Packets returns the cumulative RTP packet count (spec.md §4.8's
// Sender Report "packet and byte counters from the channel's RTP
// state"). NextSeq is called once per packet sent, so the RTP sequence
// counter itself is also the packet count.
func (c *Channel) Packets() uint32 {
	return atomic.LoadUint32(&c.seq)
}

// IncrErrors increments the channel's error counter (spec.md §4.8, RTCP
// send failures; also used by the status endpoint when a status
// broadcast for the channel fails to send).
func (c *Channel) IncrErrors() {
	atomic.AddUint64(&c.errors, 1)
}

// Errors returns the cumulative error count.
func (c *Channel) Errors() uint64 {
	return atomic.LoadUint64(&c.errors)
}

// Retune updates the channel's frequency under its own lock, independent
// of the registry lock.
func (c *Channel) Retune(hz float64) {
	c.mu.Lock()
	c.FreqHz = hz
	c.mu.Unlock()
}

// SetLifetime sets the channel's idle-expiry budget in blocks. Callers
// outside this package use it once, at construction time, before the
// channel is registered and visible to the reaper (spec.md §4.7,
// dynamic channel creation inheriting the global template's lifetime).
func (c *Channel) SetLifetime(blocks int64) {
	c.lifetime = blocks
}

// touch resets the idle-lifetime countdown (spec.md §4.7: any command
// addressed to the channel, or a nonzero retune, keeps it alive).
func (c *Channel) touch() {
	atomic.StoreInt64(&c.idleBlocks, 0)
}

// Touch is touch's exported form, called by the status endpoint whenever
// a command is addressed to an existing channel (spec.md §4.7).
func (c *Channel) Touch() {
	c.touch()
}

// tickIdle advances the idle countdown by one block and reports whether
// the channel has exceeded its configured lifetime and should be
// destroyed. Only a channel tuned to exactly 0 Hz is subject to idle
// expiry at all (spec.md §3/§4.7/§8: "a non-zero frequency channel
// lives until explicit teardown"); every other channel's countdown never
// advances.
func (c *Channel) tickIdle() bool {
	c.mu.Lock()
	zeroHz := c.FreqHz == 0
	c.mu.Unlock()
	if !zeroHz || c.lifetime <= 0 {
		return false
	}
	n := atomic.AddInt64(&c.idleBlocks, 1)
	return n >= c.lifetime
}

// Registry is the process-wide SSRC-keyed channel table (spec.md §3).
// The lock only ever guards map membership; callers must never perform
// I/O while holding it.
type Registry struct {
	mu sync.RWMutex
	m  map[uint32]*Channel
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{m: make(map[uint32]*Channel)}
}

// Lookup returns the channel registered under ssrc, if any.
func (r *Registry) Lookup(ssrc uint32) (*Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.m[ssrc]
	return c, ok
}

// tryRegister registers c under ssrc if the slot is free, reporting
// success.
func (r *Registry) tryRegister(ssrc uint32, c *Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.m[ssrc]; taken {
		return false
	}
	r.m[ssrc] = c
	return true
}

// Register is tryRegister's exported form, used by the status endpoint
// when it creates a channel dynamically in response to a command for an
// unregistered SSRC (spec.md §4.7).
func (r *Registry) Register(ssrc uint32, c *Channel) bool {
	return r.tryRegister(ssrc, c)
}

// Unregister removes the channel at ssrc, if present.
func (r *Registry) Unregister(ssrc uint32) {
	r.mu.Lock()
	delete(r.m, ssrc)
	r.mu.Unlock()
}

// All returns a snapshot of every registered channel, safe to iterate
// without the registry lock (used by the idle reaper and metrics
// collector).
func (r *Registry) All() []*Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Channel, 0, len(r.m))
	for _, c := range r.m {
		out = append(out, c)
	}
	return out
}

// ReapIdle advances the idle countdown of every channel tuned to 0 Hz by
// one block (see tickIdle) and unregisters those that reach their
// configured lifetime (spec.md
// §4.7: "no commands addressed to it for lifetime blocks, destroy it").
func (r *Registry) ReapIdle() []uint32 {
	var expired []uint32
	for _, c := range r.All() {
		if c.tickIdle() {
			expired = append(expired, c.SSRC)
		}
	}
	for _, ssrc := range expired {
		r.Unregister(ssrc)
	}
	return expired
}
