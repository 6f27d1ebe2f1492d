package status

import (
	"fmt"
	"log"
	"net"
	"time"

	"github.com/openradiod/radiod/internal/channel"
	"github.com/openradiod/radiod/internal/template"
)

// broadcastInterval is the status-report cadence (spec.md §4.7).
const broadcastInterval = time.Second

// Endpoint is the status/control multicast task bound to one front
// end's shared channel registry. It receives CMD packets on a dedicated
// listen socket and broadcasts STATUS packets on the shared TTL send
// socket, per spec.md §4.5's socket-sharing rule.
type Endpoint struct {
	registry   *channel.Registry
	factory    *channel.Factory
	listenConn *net.UDPConn
	sendConn   *net.UDPConn
	dest       *net.UDPAddr
	globalTmpl template.Channel
}

// NewEndpoint builds an Endpoint. globalTmpl is the channel template
// built from [global] alone, used to populate any channel created
// dynamically in response to a command for an SSRC not yet registered
// (spec.md §4.7, "dynamic channel creation inheriting the global
// template").
func NewEndpoint(registry *channel.Registry, factory *channel.Factory, listenConn, sendConn *net.UDPConn, dest *net.UDPAddr, globalTmpl template.Channel) *Endpoint {
	return &Endpoint{
		registry:   registry,
		factory:    factory,
		listenConn: listenConn,
		sendConn:   sendConn,
		dest:       dest,
		globalTmpl: globalTmpl,
	}
}

// Serve reads commands until stop is closed. Read errors are logged and
// the loop keeps reading.
func (e *Endpoint) Serve(stop <-chan struct{}) {
	go e.broadcastLoop(stop)

	buf := make([]byte, 65536)
	for {
		select {
		case <-stop:
			return
		default:
		}
		e.listenConn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, _, err := e.listenConn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			log.Printf("[status] read: %v", err)
			continue
		}
		if err := e.handle(buf[:n]); err != nil {
			log.Printf("[status] %v", err)
		}
	}
}

// handle decodes and applies one CMD packet (spec.md §4.7).
func (e *Endpoint) handle(data []byte) error {
	pktType, rest, err := ReadPacketType(data)
	if err != nil {
		return err
	}
	if pktType != PacketCmd {
		return nil
	}
	fields, err := Decode(rest)
	if err != nil {
		return fmt.Errorf("decoding command: %w", err)
	}

	var ssrc uint32
	var haveSSRC bool
	var freq float64
	var haveFreq bool
	var preset string

	for _, f := range fields {
		switch f.Tag {
		case TagOutputSSRC:
			ssrc = uint32(f.AsUint64())
			haveSSRC = true
		case TagRadioFrequency:
			freq = f.AsFloat64()
			haveFreq = true
		case TagPreset:
			preset = f.AsString()
		}
	}
	if !haveSSRC {
		return fmt.Errorf("command missing OUTPUT_SSRC")
	}

	c, ok := e.registry.Lookup(ssrc)
	if !ok {
		c = e.createDynamic(ssrc)
	} else {
		c.Touch()
	}

	if haveFreq {
		c.Retune(freq)
	}
	if preset != "" {
		c.Params["preset"] = preset
	}
	return nil
}

// createDynamic registers a new channel for ssrc using the global
// template, for commands that address an SSRC with no prior section
// (spec.md §4.7).
func (e *Endpoint) createDynamic(ssrc uint32) *channel.Channel {
	tmpl := e.globalTmpl.Clone()
	c := &channel.Channel{
		SSRC:    ssrc,
		Section: fmt.Sprintf("dynamic-%d", ssrc),
		Output:  tmpl.Output,
		Status:  tmpl.Status,
		Params:  tmpl.Params,
	}
	c.SetLifetime(int64(tmpl.Lifetime))
	if !e.registry.Register(ssrc, c) {
		if existing, ok := e.registry.Lookup(ssrc); ok {
			return existing
		}
	}
	return c
}

// broadcastLoop emits one STATUS packet per channel per tick.
func (e *Endpoint) broadcastLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(broadcastInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.broadcastOnce()
		}
	}
}

func (e *Endpoint) broadcastOnce() {
	for _, c := range e.registry.All() {
		buf := []byte{PacketStatus}
		buf = EncodeUint(buf, TagOutputSSRC, uint64(c.SSRC))
		buf = EncodeFloat64(buf, TagRadioFrequency, c.FreqHz)
		buf = append(buf, TagEOL)
		if _, err := e.sendConn.WriteToUDP(buf, e.dest); err != nil {
			c.IncrErrors()
		}
	}
}
