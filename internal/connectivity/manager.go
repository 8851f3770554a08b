package connectivity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/nhle/vvm-sync/internal/logger"
)

const defaultPollInterval = 2 * time.Second

var errInterfaceDown = errors.New("interface is down")

// InterfaceManager satisfies requests by watching OS network interfaces.
// Each subscription specifier is bound to an interface name; a request
// whose specifier has no binding is served by the default route.
type InterfaceManager struct {
	bindings     map[string]string
	pollInterval time.Duration
	log          *logger.Logger

	// Overridable for tests.
	interfaceByName func(name string) (*net.Interface, error)
	interfaceAddrs  func(iface *net.Interface) ([]net.Addr, error)

	mu     sync.Mutex
	active map[Callback]context.CancelFunc
}

// ManagerOption customises an InterfaceManager.
type ManagerOption func(*InterfaceManager)

// WithPollInterval sets how often interface state is re-checked.
func WithPollInterval(d time.Duration) ManagerOption {
	return func(m *InterfaceManager) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// NewInterfaceManager creates a manager. bindings maps a subscription
// specifier to the interface carrying that subscription's data.
func NewInterfaceManager(bindings map[string]string, log *logger.Logger, opts ...ManagerOption) *InterfaceManager {
	m := &InterfaceManager{
		bindings:        make(map[string]string, len(bindings)),
		pollInterval:    defaultPollInterval,
		log:             log.WithComponent("connectivity"),
		interfaceByName: net.InterfaceByName,
		interfaceAddrs: func(iface *net.Interface) ([]net.Addr, error) {
			return iface.Addrs()
		},
		active: make(map[Callback]context.CancelFunc),
	}
	for k, v := range bindings {
		m.bindings[k] = v
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RequestNetwork implements Manager. A second request with the same
// callback replaces the first.
func (m *InterfaceManager) RequestNetwork(req Request, cb Callback, timeout time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	if prev, ok := m.active[cb]; ok {
		prev()
	}
	m.active[cb] = cancel
	m.mu.Unlock()

	m.log.Debug().
		Str("specifier", req.Specifier).
		Dur("timeout", timeout).
		Msg("network requested")

	go m.serve(ctx, req, cb, timeout)
}

// UnregisterNetworkCallback implements Manager.
func (m *InterfaceManager) UnregisterNetworkCallback(cb Callback) {
	m.mu.Lock()
	cancel, ok := m.active[cb]
	delete(m.active, cb)
	m.mu.Unlock()

	if ok {
		cancel()
	}
}

// Active returns the number of outstanding requests.
func (m *InterfaceManager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

func (m *InterfaceManager) serve(ctx context.Context, req Request, cb Callback, timeout time.Duration) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	// Wait for the network to come up.
	var network *Network
	for network == nil {
		n, err := m.resolve(req)
		if err == nil {
			network = n
			break
		}
		m.log.Debug().Err(err).Str("specifier", req.Specifier).Msg("network not ready")

		select {
		case <-ctx.Done():
			return
		case <-deadline:
			m.release(cb)
			m.log.Warn().Str("specifier", req.Specifier).Msg("network request timed out")
			cb.OnUnavailable()
			return
		case <-ticker.C:
		}
	}

	if ctx.Err() != nil {
		return
	}
	m.log.Info().Str("network", network.String()).Msg("network available")
	cb.OnAvailable(network)

	// Watch for loss until released.
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.resolve(req); err != nil {
				m.release(cb)
				m.log.Warn().Err(err).Str("network", network.String()).Msg("network lost")
				cb.OnLost(network)
				return
			}
		}
	}
}

func (m *InterfaceManager) release(cb Callback) {
	m.mu.Lock()
	delete(m.active, cb)
	m.mu.Unlock()
}

// resolve returns the network currently able to serve req.
func (m *InterfaceManager) resolve(req Request) (*Network, error) {
	name, ok := m.bindings[req.Specifier]
	if !ok || name == "" {
		return &Network{Name: "default", Specifier: req.Specifier}, nil
	}

	iface, err := m.interfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("looking up interface %s: %w", name, err)
	}
	if iface.Flags&net.FlagUp == 0 {
		return nil, fmt.Errorf("%s: %w", name, errInterfaceDown)
	}

	addrs, err := m.interfaceAddrs(iface)
	if err != nil {
		return nil, fmt.Errorf("reading addresses of %s: %w", name, err)
	}
	ip := pickAddr(addrs)
	if ip == nil {
		return nil, fmt.Errorf("%s has no usable address", name)
	}

	return &Network{Name: name, Specifier: req.Specifier, LocalAddr: ip}, nil
}

// pickAddr prefers an IPv4 global address over an IPv6 one.
func pickAddr(addrs []net.Addr) net.IP {
	var v6 net.IP
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
			continue
		}
		if ip.To4() != nil {
			return ip
		}
		if v6 == nil {
			v6 = ip
		}
	}
	return v6
}
