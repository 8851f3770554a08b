// Package connectivity acquires the network a visual voicemail sync
// must run on. A request names the transport, capabilities and the
// subscription specifier; the manager answers asynchronously through a
// Callback, like a platform connectivity service would.
package connectivity

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Transport is the link type a request asks for.
type Transport int

const (
	TransportCellular Transport = iota
	TransportAny
)

// Capability is a property the acquired network must have.
type Capability int

const (
	CapabilityInternet Capability = iota
)

// Request describes the network a sync needs.
type Request struct {
	Transport    Transport
	Capabilities []Capability

	// Specifier pins the request to one subscription.
	Specifier string
}

// CellularRequest builds the request used by visual voicemail syncs:
// cellular transport with internet capability for the subscription.
func CellularRequest(specifier string) Request {
	return Request{
		Transport:    TransportCellular,
		Capabilities: []Capability{CapabilityInternet},
		Specifier:    specifier,
	}
}

// Network is an acquired network. Connections dialled through it leave
// from the bound interface address. A nil *Network dials over the
// default route.
type Network struct {
	Name      string
	Specifier string
	LocalAddr net.IP
}

// DialContext opens a connection routed over the network.
func (n *Network) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	d := &net.Dialer{Timeout: 30 * time.Second}
	if n != nil && n.LocalAddr != nil {
		d.LocalAddr = &net.TCPAddr{IP: n.LocalAddr}
	}
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s via %s: %w", addr, n.String(), err)
	}
	return conn, nil
}

func (n *Network) String() string {
	if n == nil {
		return "default"
	}
	if n.LocalAddr == nil {
		return n.Name
	}
	return n.Name + "(" + n.LocalAddr.String() + ")"
}

//go:generate mockgen -source=network.go -destination=../mock/connectivity_mock.go -package=mock

// Callback receives the result of a network request. Methods are invoked
// from the manager's goroutines and must not block for long.
type Callback interface {
	OnAvailable(n *Network)
	OnLost(n *Network)
	OnUnavailable()
}

// Manager issues network requests and releases them.
type Manager interface {
	// RequestNetwork returns immediately. cb.OnAvailable fires once a
	// matching network is up; cb.OnUnavailable fires if none comes up
	// within timeout.
	RequestNetwork(req Request, cb Callback, timeout time.Duration)

	// UnregisterNetworkCallback releases the request made with cb.
	UnregisterNetworkCallback(cb Callback)
}
