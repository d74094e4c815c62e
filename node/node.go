// Package node defines Node, an immutable description of a back-end
// endpoint a Balancer can select and a Service can forward to.
//
// Grounded on original_source/include/server/Node.hpp (identity) and
// spec.md section 3.
package node

import (
	"fmt"

	"github.com/momentics/doforward/internal/errs"
)

// Transport identifies the node's transport-layer protocol.
type Transport int

const (
	TCP Transport = iota
	UDP
)

func (t Transport) String() string {
	if t == UDP {
		return "udp"
	}
	return "tcp"
}

// Application identifies the application-layer protocol, if any, the
// node speaks. Only None is actually forwarded to by the core; HTTP
// and HTTPS are admitted by configuration but out of scope for the
// data plane (spec.md section 1).
type Application int

const (
	None Application = iota
	HTTP
	HTTPS
)

func (a Application) String() string {
	switch a {
	case HTTP:
		return "http"
	case HTTPS:
		return "https"
	default:
		return "none"
	}
}

// Endpoint is the (host, port, transport, application) tuple used as
// the Server's secondary node index; two nodes with the same Endpoint
// cannot coexist.
type Endpoint struct {
	Host        string
	Port        uint16
	Transport   Transport
	Application Application
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d/%s/%s", e.Host, e.Port, e.Transport, e.Application)
}

// Node is a back-end endpoint. Immutable after construction; unique by
// Name within a Server.
type Node struct {
	name     string
	endpoint Endpoint
}

// New constructs a Node. host must already be validated by the caller
// (Server/config layer); port == 0 is rejected.
func New(name, host string, port uint16, transport Transport, application Application) (*Node, error) {
	if port == 0 {
		return nil, errs.Newf(errs.CodeValidation, "node %q: port must be non-zero", name)
	}
	return &Node{
		name: name,
		endpoint: Endpoint{
			Host:        host,
			Port:        port,
			Transport:   transport,
			Application: application,
		},
	}, nil
}

func (n *Node) Name() string         { return n.name }
func (n *Node) Endpoint() Endpoint   { return n.endpoint }
func (n *Node) Host() string         { return n.endpoint.Host }
func (n *Node) Port() uint16         { return n.endpoint.Port }
func (n *Node) Transport() Transport { return n.endpoint.Transport }
func (n *Node) Application() Application {
	return n.endpoint.Application
}

func (n *Node) Addr() string {
	return fmt.Sprintf("%s:%d", n.endpoint.Host, n.endpoint.Port)
}

func (n *Node) String() string {
	return fmt.Sprintf("Node(%s, %s)", n.name, n.Addr())
}
