// Package radiod wires together the Config Loader, Preset Library,
// Front-End Binder, Multicast Advertiser, Channel Template Builder, and
// Channel Factory into the single running daemon described in spec.md
// §3–§4. It owns the startup sequence and the corresponding shutdown.
package radiod

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/openradiod/radiod/internal/channel"
	"github.com/openradiod/radiod/internal/config"
	"github.com/openradiod/radiod/internal/frontend"
	"github.com/openradiod/radiod/internal/mcast"
	"github.com/openradiod/radiod/internal/metrics"
	"github.com/openradiod/radiod/internal/mqttpub"
	"github.com/openradiod/radiod/internal/rtcp"
	"github.com/openradiod/radiod/internal/status"
	"github.com/openradiod/radiod/internal/supervisor"
	"github.com/openradiod/radiod/internal/template"
)

// Default RTP/RTCP and status-channel ports. ka9q-radio's own defaults
// live in its multicast.c, out of scope here; these follow the RTP
// convention of an even media port with RTCP on the next odd port, and
// a distinct status port, which is the detail this tree needs and no
// more.
const (
	DataPort   = 5004
	StatusPort = 5006
)

// Options configures one daemon run (cmd/radiod's CLI flags land here).
type Options struct {
	InstanceName     string
	ConfigPath       string
	PlanTimeLimitSec float64
}

// System is the fully wired daemon. Its fields are read-only after
// Bring returns except for the per-channel registry, which every
// channel section's goroutines mutate concurrently through the Registry
// API's own locking.
type System struct {
	Config   *config.Tree
	Presets  *config.Tree
	Frontend *frontend.Frontend
	Registry *channel.Registry
	Factory  *channel.Factory

	advertiser *mcast.Advertiser
	send       *mcast.SendSockets
	statusRecv *net.UDPConn
	statusDest *net.UDPAddr

	metricsServer *http.Server
	mqtt          *mqttpub.Publisher
	collectors    *metrics.Collectors

	stop chan struct{}
	wg   sync.WaitGroup
}

// Bring runs the full startup sequence (spec.md §3/§4) and returns the
// assembled System, or an exit code and error describing why startup
// failed.
func Bring(opts Options) (*System, supervisor.ExitCode, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, supervisor.ExitNoInput, fmt.Errorf("loading config: %w", err)
	}
	for _, w := range cfg.Validate() {
		log.Printf("[radiod] %s", w)
	}

	presetsPath := config.PresetsPath(cfg)
	presets, err := config.LoadPresets(presetsPath)
	if err != nil {
		log.Printf("[radiod] presets file %s: %v (continuing without presets)", presetsPath, err)
		presets = config.Empty()
	}

	global := config.GlobalSectionName
	iface := resolveInterface(cfg.GetString(global, "iface", ""))
	blocktimeMs := cfg.GetFloat(global, "blocktime", 20.0)
	overlap := cfg.GetInt(global, "overlap", 5)
	ttl := cfg.GetInt(global, "ttl", 5)
	tos := cfg.GetInt(global, "tos", 0)
	dns := cfg.GetBool(global, "dns", false)
	instance := opts.InstanceName
	if instance == "" {
		instance = "radiod"
	}

	if cpus := cfg.GetString(global, "affinity", ""); cpus != "" || cfg.GetInt(global, "prio", 0) != 0 {
		runtime.LockOSThread()
		if err := frontend.ApplyAffinity(parseCPUList(cpus), cfg.GetInt(global, "prio", 0)); err != nil {
			log.Printf("[radiod] affinity/prio: %v (continuing)", err)
		}
	}

	feSection, ok := findFrontendSection(cfg)
	if !ok {
		return nil, supervisor.ExitNoHost, fmt.Errorf("no section declares a \"device\" key; nothing to bind as the front end")
	}

	planLevel := frontend.PlanLevel(strings.ToLower(cfg.GetString(global, "fft-plan-level", "measure")))
	fe, err := frontend.Bind(cfg, feSection, frontend.BindOptions{
		BlocktimeMs:      blocktimeMs,
		Overlap:          overlap,
		WisdomPath:       cfg.GetString(global, "wisdom-file", ""),
		PlanLevel:        planLevel,
		PlanTimeLimitSec: opts.PlanTimeLimitSec,
		SpurHz:           parseSpurList(cfg.GetString(feSection, "notch", "")),
	})
	if err != nil {
		code := supervisor.ExitNoHost
		if planLevel == frontend.PlanWisdomOnly {
			code = supervisor.ExitUnavailable
		}
		return nil, code, err
	}

	dataName := cfg.GetString(global, "data", instance)
	statusName := cfg.GetString(global, "status", "")
	if statusName != "" && mcast.SameGroup(dataName, statusName) {
		return nil, supervisor.ExitUsage, fmt.Errorf("[global] data and status must not resolve to the same multicast group (%q)", dataName)
	}

	dataRes := mcast.Resolve(dataName, DataPort, dns)
	send, err := mcast.OpenSendSockets(dataRes.Addr, iface, ttl, tos)
	if err != nil {
		return nil, supervisor.ExitUnavailable, fmt.Errorf("opening data send sockets: %w", err)
	}

	var statusRecv *net.UDPConn
	var statusDest *net.UDPAddr
	if statusName != "" {
		statusRes := mcast.Resolve(statusName, StatusPort, dns)
		statusDest = statusRes.Addr
		statusRecv, err = mcast.ListenMulticast(statusRes.Addr, iface)
		if err != nil {
			send.TTL.Close()
			send.Loop.Close()
			return nil, supervisor.ExitUnavailable, fmt.Errorf("opening status listener: %w", err)
		}
	}

	var adv *mcast.Advertiser
	if a, err := mcast.NewAdvertiser(); err != nil {
		log.Printf("[radiod] mDNS advertiser unavailable: %v", err)
	} else {
		adv = a
		if err := adv.Publish(instance, mcast.ServiceRTP, dataRes, ttl); err != nil {
			log.Printf("[radiod] advertising data group: %v", err)
		}
		if statusDest != nil {
			if err := adv.Publish(instance, mcast.ServiceStatus, mcast.Resolution{Addr: statusDest, UsedDNS: dataRes.UsedDNS}, ttl); err != nil {
				log.Printf("[radiod] advertising status group: %v", err)
			}
		}
	}

	registry := channel.NewRegistry()
	factory := channel.NewFactory(fe, registry, blocktimeMs)

	sys := &System{
		Config:     cfg,
		Presets:    presets,
		Frontend:   fe,
		Registry:   registry,
		Factory:    factory,
		advertiser: adv,
		send:       send,
		statusRecv: statusRecv,
		statusDest: statusDest,
		stop:       make(chan struct{}),
	}

	sys.createChannelSections(cfg, presets, feSection)

	if statusRecv != nil {
		globalTmpl, _ := template.Build(cfg, presets, global, blocktimeMs)
		ep := status.NewEndpoint(registry, factory, statusRecv, send.TTL, statusDest, globalTmpl)
		sys.wg.Add(1)
		go func() {
			defer sys.wg.Done()
			ep.Serve(sys.stop)
		}()
	}

	if cfg.GetBool(global, "rtcp", true) && statusDest != nil {
		sender := rtcp.NewSender(registry, send.TTL)
		sys.wg.Add(1)
		go func() {
			defer sys.wg.Done()
			sender.Run(sys.stop)
		}()
	}

	if listen := cfg.GetString(global, "metrics-listen", ""); listen != "" {
		sys.startMetrics(listen)
	}

	if broker := cfg.GetString(global, "mqtt-broker", ""); broker != "" {
		pub, err := mqttpub.New(broker, cfg.GetString(global, "mqtt-user", ""), cfg.GetString(global, "mqtt-password", ""), instance)
		if err != nil {
			log.Printf("[radiod] mqtt: %v", err)
		} else {
			sys.mqtt = pub
			for _, c := range registry.All() {
				pub.Publish(mqttpub.Event{Name: "created", SSRC: c.SSRC, Section: c.Section, FreqHz: c.FreqHz})
			}
		}
	}

	sys.startReaper(blocktimeMs)

	return sys, supervisor.ExitOK, nil
}

// createChannelSections processes every non-global, non-front-end
// section concurrently (spec.md §4.6: "process channel sections in
// parallel"), joining before returning so the config tree isn't
// released while a section is still reading from it.
func (s *System) createChannelSections(cfg, presets *config.Tree, feSection string) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, section := range cfg.SectionNames() {
		if section == config.GlobalSectionName || section == feSection || cfg.IsFrontend(section) {
			continue
		}
		section := section
		wg.Add(1)
		go func() {
			defer wg.Done()
			chans, warnings := s.Factory.CreateSection(cfg, presets, section)
			mu.Lock()
			for _, w := range warnings {
				log.Printf("[radiod] %s", w)
			}
			mu.Unlock()
			for _, c := range chans {
				if s.mqtt != nil {
					s.mqtt.Publish(mqttpub.Event{Name: "created", SSRC: c.SSRC, Section: c.Section, FreqHz: c.FreqHz})
				}
			}
		}()
	}
	wg.Wait()
}

func (s *System) startMetrics(listen string) {
	s.collectors = metrics.NewCollectors()
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	s.metricsServer = &http.Server{Addr: listen, Handler: mux}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.collectors.Collect(s.Registry)
			}
		}
	}()

	go func() {
		if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[radiod] metrics server: %v", err)
		}
	}()
}

func (s *System) startReaper(blocktimeMs float64) {
	interval := time.Duration(blocktimeMs * float64(time.Millisecond))
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				for _, ssrc := range s.Registry.ReapIdle() {
					if s.mqtt != nil {
						s.mqtt.Publish(mqttpub.Event{Name: "destroyed", SSRC: ssrc})
					}
				}
			}
		}
	}()
}

// Shutdown stops every background task and releases sockets.
func (s *System) Shutdown() {
	close(s.stop)
	if s.metricsServer != nil {
		s.metricsServer.Close()
	}
	s.wg.Wait()
	if s.advertiser != nil {
		s.advertiser.Close()
	}
	if s.mqtt != nil {
		s.mqtt.Close()
	}
	if s.send != nil {
		s.send.TTL.Close()
		s.send.Loop.Close()
	}
	if s.statusRecv != nil {
		s.statusRecv.Close()
	}
}

func resolveInterface(name string) *net.Interface {
	if name == "" {
		return nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		log.Printf("[radiod] interface %q: %v (using default)", name, err)
		return nil
	}
	return iface
}

func findFrontendSection(cfg *config.Tree) (string, bool) {
	for _, section := range cfg.SectionNames() {
		if section == config.GlobalSectionName {
			continue
		}
		if cfg.IsFrontend(section) {
			return section, true
		}
	}
	return "", false
}

// parseCPUList parses a comma-separated [global] affinity value ("0,2,3")
// into the CPU indices ApplyAffinity expects, skipping entries that don't
// parse rather than failing the whole list.
func parseCPUList(raw string) []int {
	if raw == "" {
		return nil
	}
	var out []int
	for _, f := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err == nil {
			out = append(out, n)
		}
	}
	return out
}

// parseSpurList parses a comma/space separated list of frequencies
// using channel.ParseFrequency's suffix rules.
func parseSpurList(raw string) []float64 {
	if raw == "" {
		return nil
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
	var out []float64
	for _, f := range fields {
		hz, err := channel.ParseFrequency(f)
		if err == nil {
			out = append(out, hz)
		}
	}
	return out
}
