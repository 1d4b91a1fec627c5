package tgproto

import (
	"fmt"
	"net"

	"github.com/yl2chen/cidranger"
)

// IPList is a CIDR-based allow/block list. Dispatcher.Serve consults it
// once for every accepted connection, before any packet is read;
// OPEN_SESSION requests on an already accepted connection are not
// checked again. Adapted from the teacher's
// mtglib.IPBlocklist, backed by cidranger instead of a hand-rolled trie.
type IPList struct {
	ranger cidranger.Ranger
	empty  bool
}

// NewIPList builds a list from a set of CIDR strings ("1.2.3.0/24",
// "::1/128", ...). An empty cidrs slice yields a list that contains
// nothing, i.e. a no-op blocklist or a deny-all allowlist depending on
// how the caller uses it.
func NewIPList(cidrs []string) (*IPList, error) {
	ranger := cidranger.NewPCTrieRanger()

	for _, c := range cidrs {
		_, network, err := net.ParseCIDR(c)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %q: %w", c, err)
		}

		if err := ranger.Insert(cidranger.NewBasicRangerEntry(*network)); err != nil {
			return nil, fmt.Errorf("cannot insert CIDR %q: %w", c, err)
		}
	}

	return &IPList{ranger: ranger, empty: len(cidrs) == 0}, nil
}

// Contains reports whether ip matches any entry in the list.
func (l *IPList) Contains(ip net.IP) bool {
	if l == nil || l.empty {
		return false
	}

	ok, err := l.ranger.Contains(ip)
	if err != nil {
		return false
	}

	return ok
}
