package peer

import (
	"fmt"
	"net"
)

// Peer identifies a remote node. Name is the identifier the protocol uses;
// Addr is only known for peers reached through a network transport.
type Peer interface {
	Name() string
	Addr() net.Addr
	Equals(other Peer) bool
	ToString() string
	String() string
}

type peer struct {
	name string
	addr net.Addr
}

func NewPeer(name string, addr net.Addr) Peer {
	return &peer{
		name: name,
		addr: addr,
	}
}

// Named is a peer without a network address, as used by in-memory transports.
func Named(name string) Peer {
	return &peer{name: name}
}

func (p *peer) Name() string {
	return p.name
}

func (p *peer) Addr() net.Addr {
	return p.addr
}

func (p *peer) ToString() string {
	if p == nil {
		return "<nil>"
	}
	if p.addr == nil {
		return p.name
	}
	return fmt.Sprintf("%s@%s", p.name, p.addr)
}

func (p *peer) String() string {
	return p.ToString()
}

// Equals compares peers by name only.
func (p *peer) Equals(otherPeer Peer) bool {
	if p == nil {
		return false
	}
	if otherPeer == nil {
		return false
	}
	return p.name == otherPeer.Name()
}
