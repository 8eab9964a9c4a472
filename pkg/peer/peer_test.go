package peer

import (
	"net"
	"testing"
)

func TestPeerEqualsByName(t *testing.T) {
	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1234}
	withAddr := NewPeer("node0", addr)
	named := Named("node0")

	if !withAddr.Equals(named) {
		t.Error("peers with the same name should be equal")
	}
	if named.Equals(Named("node1")) {
		t.Error("peers with different names should differ")
	}
	if named.Equals(nil) {
		t.Error("peer should not equal nil")
	}
}

func TestPeerToString(t *testing.T) {
	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1234}
	if got := NewPeer("node0", addr).ToString(); got != "node0@127.0.0.1:1234" {
		t.Errorf("ToString() = %s", got)
	}
	if got := Named("node0").String(); got != "node0" {
		t.Errorf("String() = %s", got)
	}
}
