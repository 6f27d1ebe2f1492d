package mcast

import (
	"context"
	"fmt"
	"log"
	"net"

	"github.com/brutella/dnssd"
)

// Service type strings for spec.md §4.5 / §6's mDNS records.
const (
	ServiceRTP    = "_rtp._udp"
	ServiceOpus   = "_opus._udp"
	ServiceStatus = "_ka9q-ctl._udp"
)

// Advertiser publishes mDNS/DNS-SD service records via a single
// process-wide responder, grounded on doismellburning-samoyed's
// src/dns_sd.go (github.com/brutella/dnssd), which plays the role
// ka9q-radio's out-of-scope Avahi C bindings play in the original.
type Advertiser struct {
	responder dnssd.Responder
	cancel    context.CancelFunc
}

// NewAdvertiser starts the responder's background goroutine.
func NewAdvertiser() (*Advertiser, error) {
	rp, err := dnssd.NewResponder()
	if err != nil {
		return nil, fmt.Errorf("mcast: creating mDNS responder: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &Advertiser{responder: rp, cancel: cancel}
	go func() {
		if err := rp.Respond(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[advertiser] responder exited: %v", err)
		}
	}()
	return a, nil
}

// Close stops the responder.
func (a *Advertiser) Close() {
	a.cancel()
}

// Publish advertises instanceName under serviceType at res's resolved
// address. When res.UsedDNS, only the service record is published — the
// name is already resolvable, so no address record is needed (spec.md
// §4.5 step 1). Otherwise both the service and a synthesized address
// record are published (step 2). ttl becomes the "TTL=<n>" TXT attribute.
func (a *Advertiser) Publish(instanceName, serviceType string, res Resolution, ttl int) error {
	cfg := dnssd.Config{
		Name: instanceName,
		Type: serviceType,
		Port: res.Addr.Port,
		Text: map[string]string{"TTL": fmt.Sprintf("%d", ttl)},
	}
	if !res.UsedDNS {
		cfg.IPs = []net.IP{res.Addr.IP}
	}

	svc, err := dnssd.NewService(cfg)
	if err != nil {
		return fmt.Errorf("mcast: building service record for %s: %w", instanceName, err)
	}
	if _, err := a.responder.Add(svc); err != nil {
		return fmt.Errorf("mcast: publishing %s %s: %w", serviceType, instanceName, err)
	}
	return nil
}
