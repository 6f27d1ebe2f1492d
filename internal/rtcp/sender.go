// Package rtcp sends the per-channel RTCP Sender Report/SDES compound
// packets described in spec.md §4.8, grounded on the teacher's use of
// github.com/pion/rtp (audio.go) extended to that library's sibling
// github.com/pion/rtcp, the pack's only RTP-family codec.
package rtcp

import (
	"fmt"
	"net"
	"os"
	"time"

	pionrtcp "github.com/pion/rtcp"

	"github.com/openradiod/radiod/internal/channel"
)

// tickInterval is the fixed 1 Hz cadence spec.md §4.8 requires.
const tickInterval = time.Second

// toolName is the SDES TOOL item value.
const toolName = "radiod"

// Sender periodically emits a compound RTCP packet for every registered
// channel over the shared send socket, addressed to the channel's
// Status.DestAddr. A channel with no Status.DestAddr gets no packet.
type Sender struct {
	registry *channel.Registry
	conn     *net.UDPConn
	cname    string
}

// NewSender returns a Sender that writes to conn (the process's TTL
// send socket, per spec.md §4.5) using a CNAME derived from the local
// hostname.
func NewSender(registry *channel.Registry, conn *net.UDPConn) *Sender {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return &Sender{registry: registry, conn: conn, cname: fmt.Sprintf("radio@%s", host)}
}

// Run sends one round of reports per tick until ctx-like stop fires.
// The caller drives the loop with a channel so it composes with the
// supervisor's signal handling (spec.md §4.9).
func (s *Sender) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick sends one compound packet per channel, skipping SSRC 0 (reserved,
// never a real sender) as spec.md §4.8 requires.
func (s *Sender) tick() {
	now := time.Now()
	for _, c := range s.registry.All() {
		if c.SSRC == 0 {
			continue
		}
		if err := s.send(c, now); err != nil {
			c.IncrErrors()
		}
	}
}

func (s *Sender) send(c *channel.Channel, now time.Time) error {
	sr := &pionrtcp.SenderReport{
		SSRC:        c.SSRC,
		NTPTime:     ntpTimestamp(now),
		RTPTime:     uint32(now.UnixNano() / int64(time.Millisecond)),
		PacketCount: c.Packets(),
		OctetCount:  uint32(c.Bytes()),
	}
	sdes := &pionrtcp.SourceDescription{
		Chunks: []pionrtcp.SourceDescriptionChunk{{
			Source: c.SSRC,
			Items: []pionrtcp.SourceDescriptionItem{
				{Type: pionrtcp.SDESCNAME, Text: s.cname},
				{Type: pionrtcp.SDESName, Text: c.Section},
				{Type: pionrtcp.SDESEmail, Text: s.cname},
				{Type: pionrtcp.SDESTool, Text: toolName},
			},
		}},
	}

	data, err := pionrtcp.Marshal([]pionrtcp.Packet{sr, sdes})
	if err != nil {
		return fmt.Errorf("rtcp: marshal ssrc %d: %w", c.SSRC, err)
	}
	if c.Status.DestAddr == nil {
		return nil
	}
	if _, err := s.conn.WriteToUDP(data, c.Status.DestAddr); err != nil {
		return fmt.Errorf("rtcp: send ssrc %d: %w", c.SSRC, err)
	}
	return nil
}

// ntpTimestamp converts a time.Time to a 64-bit NTP timestamp (seconds
// since 1900-01-01 in the high word, fractional seconds in the low
// word), the format pion/rtcp's SenderReport.NTPTime expects.
func ntpTimestamp(t time.Time) uint64 {
	const ntpEpochOffset = 2208988800 // seconds between 1900-01-01 and 1970-01-01
	secs := uint64(t.Unix()+ntpEpochOffset) << 32
	frac := uint64(float64(t.Nanosecond()) / 1e9 * (1 << 32))
	return secs | frac
}
