// ABOUTME: mDNS discovery of stream servers
// ABOUTME: Advertises and browses _streamplay._tcp, turning service entries into stream URLs
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

// DefaultService is the mDNS service type announced by stream servers
const DefaultService = "_streamplay._tcp"

// Config holds discovery configuration
type Config struct {
	Service string
	Timeout time.Duration
}

// Manager advertises or browses for stream servers until stopped
type Manager struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	streams chan *Stream
}

// Stream describes a discovered stream
type Stream struct {
	Name   string
	Host   string
	Port   int
	Path   string
	Scheme string
}

// URL returns the address of the stream
func (s *Stream) URL() string {
	u := url.URL{
		Scheme: s.Scheme,
		Host:   net.JoinHostPort(s.Host, strconv.Itoa(s.Port)),
		Path:   s.Path,
	}
	return u.String()
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.Service == "" {
		config.Service = DefaultService
	}
	if config.Timeout <= 0 {
		config.Timeout = 3 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		streams: make(chan *Stream, 10),
	}
}

// Advertise announces a stream served on port at path until Stop
func (m *Manager) Advertise(instance string, port int, path string) error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		instance,
		m.config.Service,
		"",
		"",
		port,
		ips,
		advertiseTXT(path),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Printf("Advertising mDNS service: %s on port %d (type: %s)", instance, port, m.config.Service)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// advertiseTXT builds the TXT record fields for a stream path
func advertiseTXT(path string) []string {
	if path == "" {
		return nil
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return []string{"path=" + path}
}

// Browse searches for stream servers in the background
func (m *Manager) Browse() {
	go m.browseLoop()
}

// browseLoop repeats queries, reporting each service once
func (m *Manager) browseLoop() {
	seen := make(map[string]bool)

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)
		done := make(chan struct{})

		go func() {
			defer close(done)
			for entry := range entries {
				stream := entryToStream(entry)
				if stream == nil || seen[entry.Name] {
					continue
				}
				seen[entry.Name] = true

				log.Printf("Discovered stream: %s at %s", stream.Name, stream.URL())

				select {
				case m.streams <- stream:
				case <-m.ctx.Done():
				}
			}
		}()

		params := &mdns.QueryParam{
			Service: m.config.Service,
			Domain:  "local",
			Timeout: m.config.Timeout,
			Entries: entries,
		}

		if err := mdns.Query(params); err != nil {
			log.Printf("mDNS query failed: %v", err)
		}
		close(entries)
		<-done

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// Streams returns the channel of discovered streams
func (m *Manager) Streams() <-chan *Stream {
	return m.streams
}

// Stop stops browsing and advertising
func (m *Manager) Stop() {
	m.cancel()
}

// entryToStream converts a service entry, or returns nil without an address
func entryToStream(entry *mdns.ServiceEntry) *Stream {
	var host string
	switch {
	case entry.AddrV4 != nil:
		host = entry.AddrV4.String()
	case entry.AddrV6 != nil:
		host = entry.AddrV6.String()
	default:
		return nil
	}

	path := txtValue(entry.InfoFields, "path")
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	scheme := txtValue(entry.InfoFields, "scheme")
	if scheme == "" {
		scheme = "http"
	}

	return &Stream{
		Name:   serviceName(entry.Name),
		Host:   host,
		Port:   entry.Port,
		Path:   path,
		Scheme: scheme,
	}
}

// txtValue returns the value of key=value in TXT record fields
func txtValue(fields []string, key string) string {
	prefix := key + "="
	for _, f := range fields {
		if strings.HasPrefix(f, prefix) {
			return strings.TrimPrefix(f, prefix)
		}
	}
	return ""
}

// serviceName strips the service type and domain from an instance name
func serviceName(name string) string {
	if i := strings.Index(name, "._"); i >= 0 {
		return name[:i]
	}
	return strings.TrimSuffix(name, ".")
}

// getLocalIPs returns local IPv4 addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}

// String implements fmt.Stringer
func (s *Stream) String() string {
	return fmt.Sprintf("%s (%s)", s.Name, s.URL())
}
