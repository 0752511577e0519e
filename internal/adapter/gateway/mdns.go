package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	mdnsServiceType = "_blecentral._tcp"
	mdnsDomain      = "local."
	// DefaultBrowseTimeout bounds Browse when the caller gives no deadline.
	DefaultBrowseTimeout = 3 * time.Second
)

// Endpoint is a gateway found on the local network.
type Endpoint struct {
	Instance string
	Addr     string
	Meta     map[string]string
}

// MDNS advertises and browses gateways with DNS-SD.
type MDNS struct {
	logger *slog.Logger
}

// NewMDNS creates an MDNS helper.
func NewMDNS(logger *slog.Logger) *MDNS {
	return &MDNS{logger: logger}
}

// Advertise registers the gateway listening on port until ctx is done.
func (m *MDNS) Advertise(ctx context.Context, instance string, port int, meta map[string]string) error {
	server, err := zeroconf.Register(instance, mdnsServiceType, mdnsDomain, port, txtRecords(meta), nil)
	if err != nil {
		return fmt.Errorf("mdns register: %w", err)
	}
	m.logger.Info("mdns advertising", "instance", instance, "port", port)
	<-ctx.Done()
	server.Shutdown()
	return nil
}

// Browse collects gateways answering within timeout.
func (m *MDNS) Browse(ctx context.Context, timeout time.Duration) ([]Endpoint, error) {
	if timeout <= 0 {
		timeout = DefaultBrowseTimeout
	}
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("mdns resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu    sync.Mutex
		found []Endpoint
		wg    sync.WaitGroup
	)

	browseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for entry := range entries {
			ep := entryToEndpoint(entry)
			mu.Lock()
			found = append(found, ep)
			mu.Unlock()
			m.logger.Debug("mdns found gateway", "instance", ep.Instance, "addr", ep.Addr)
		}
	}()

	if err := resolver.Browse(browseCtx, mdnsServiceType, mdnsDomain, entries); err != nil {
		cancel()
		wg.Wait()
		return nil, fmt.Errorf("mdns browse: %w", err)
	}

	<-browseCtx.Done()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	sort.Slice(found, func(i, j int) bool { return found[i].Instance < found[j].Instance })
	return found, nil
}

// PortOf returns the numeric port of a host:port address.
func PortOf(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(p)
}

func txtRecords(meta map[string]string) []string {
	txt := make([]string, 0, len(meta))
	for k, v := range meta {
		txt = append(txt, k+"="+v)
	}
	sort.Strings(txt)
	return txt
}

func entryToEndpoint(entry *zeroconf.ServiceEntry) Endpoint {
	var addr string
	switch {
	case len(entry.AddrIPv4) > 0:
		addr = net.JoinHostPort(entry.AddrIPv4[0].String(), strconv.Itoa(entry.Port))
	case len(entry.AddrIPv6) > 0:
		addr = net.JoinHostPort(entry.AddrIPv6[0].String(), strconv.Itoa(entry.Port))
	}
	return Endpoint{
		Instance: entry.ServiceRecord.Instance,
		Addr:     addr,
		Meta:     parseTXTRecords(entry.Text),
	}
}

func parseTXTRecords(txt []string) map[string]string {
	m := make(map[string]string, len(txt))
	for _, t := range txt {
		if k, v, ok := strings.Cut(t, "="); ok {
			m[k] = v
		}
	}
	return m
}
