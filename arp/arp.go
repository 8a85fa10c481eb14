// Package arp resolves network addresses into hardware addresses.
package arp

import (
	"errors"
	"fmt"
	"net/netip"
	"sort"

	"github.com/sarchlab/arqsim/forwarding"
)

// ErrUnresolved is returned when a network address has no known hardware
// address.
var ErrUnresolved = errors.New("address unresolved")

// A Resolver finds the hardware address of a network address.
type Resolver interface {
	Resolve(ip string) (string, error)
}

// Cache is a Resolver backed by static entries. Adding an entry for a known
// network address replaces the old hardware address.
type Cache struct {
	entries map[netip.Addr]string
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[netip.Addr]string)}
}

// Add maps the network address to the hardware address.
func (c *Cache) Add(ip, mac string) error {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return fmt.Errorf("arp entry %s: %w", ip, err)
	}

	if err := forwarding.ValidateAddress(mac); err != nil {
		return fmt.Errorf("arp entry %s: %w", ip, err)
	}

	c.entries[addr] = mac

	return nil
}

// Resolve returns the hardware address of the network address.
func (c *Cache) Resolve(ip string) (string, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrUnresolved, ip, err)
	}

	mac, found := c.entries[addr]
	if !found {
		return "", fmt.Errorf("%w: %s", ErrUnresolved, ip)
	}

	return mac, nil
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	return len(c.entries)
}

// IPs returns the network addresses in the cache in ascending order.
func (c *Cache) IPs() []string {
	addrs := make([]netip.Addr, 0, len(c.entries))
	for addr := range c.entries {
		addrs = append(addrs, addr)
	}

	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Less(addrs[j]) })

	ips := make([]string, len(addrs))
	for i, addr := range addrs {
		ips[i] = addr.String()
	}

	return ips
}
