package collector

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/netip"
	"os"
	"strings"
	"sync"
)

// MaskIP masks an IP address to its /24 (IPv4) or /64 (IPv6) prefix.
// It returns "" for anything that does not parse.
func MaskIP(ipStr string) string {
	ip := net.ParseIP(strings.TrimSpace(ipStr))
	if ip == nil {
		return ""
	}

	if ipv4 := ip.To4(); ipv4 != nil {
		return ipv4.Mask(net.CIDRMask(24, 32)).String() + "/24"
	}

	return ip.Mask(net.CIDRMask(64, 128)).String() + "/64"
}

// PrefixList is a concurrent set of masked IP prefixes, used for Tor exit
// nodes and threat feeds. Single addresses are stored as their /24 or /64
// prefix, so no raw address is ever kept. CIDR ranges of any length are
// matched by containment.
type PrefixList struct {
	mu       sync.RWMutex
	prefixes map[string]struct{}
	ranges   []netip.Prefix
}

// NewPrefixList builds a list from IPs or CIDR prefixes.
func NewPrefixList(entries ...string) *PrefixList {
	l := &PrefixList{prefixes: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		l.Add(e)
	}
	return l
}

// LoadPrefixList reads a list from a file.
//
// Supported formats:
//   - One IP per line
//   - Lines starting with # are ignored (comments)
//   - IPsum format: "1.2.3.4\t5" (IP + TAB + count)
//   - CIDR notation of any length (e.g., "10.0.0.0/8", "1.2.3.0/24")
func LoadPrefixList(path string) (*PrefixList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open prefix list: %w", err)
	}
	defer f.Close()

	return ReadPrefixList(f)
}

// ReadPrefixList reads a list in the LoadPrefixList format. Lines that are
// neither an IP nor a CIDR prefix are skipped.
func ReadPrefixList(r io.Reader) (*PrefixList, error) {
	l := NewPrefixList()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		l.Add(strings.Fields(line)[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read prefix list: %w", err)
	}
	return l, nil
}

// Add inserts an IP (masked) or a CIDR prefix. It reports whether the entry
// parsed.
func (l *PrefixList) Add(entry string) bool {
	key, rng, ok := parseEntry(entry)
	if !ok {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if key != "" {
		l.prefixes[key] = struct{}{}
		return true
	}
	for _, existing := range l.ranges {
		if existing == rng {
			return true
		}
	}
	l.ranges = append(l.ranges, rng)
	return true
}

// Remove deletes the prefix of an IP or a CIDR prefix.
func (l *PrefixList) Remove(entry string) {
	key, rng, ok := parseEntry(entry)
	if !ok {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if key != "" {
		delete(l.prefixes, key)
		return
	}
	for i, existing := range l.ranges {
		if existing == rng {
			l.ranges = append(l.ranges[:i], l.ranges[i+1:]...)
			return
		}
	}
}

// Contains reports whether ip falls inside a listed prefix.
func (l *PrefixList) Contains(ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.prefixes[MaskIP(addr.String())]; ok {
		return true
	}
	for _, rng := range l.ranges {
		if rng.Contains(addr) {
			return true
		}
	}
	return false
}

// Len returns the number of prefixes.
func (l *PrefixList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.prefixes) + len(l.ranges)
}

// parseEntry returns the masked key for single addresses and for /24 or /64
// prefixes, or the canonical range for any other prefix length.
func parseEntry(entry string) (key string, rng netip.Prefix, ok bool) {
	entry = strings.TrimSpace(entry)
	if !strings.Contains(entry, "/") {
		key = MaskIP(entry)
		return key, netip.Prefix{}, key != ""
	}

	p, err := netip.ParsePrefix(entry)
	if err != nil {
		return "", netip.Prefix{}, false
	}
	if p.Addr().Is4In6() && p.Bits() >= 96 {
		p = netip.PrefixFrom(p.Addr().Unmap(), p.Bits()-96)
	}
	p = p.Masked()
	if p.Addr().Is4() && p.Bits() == 24 || p.Addr().Is6() && p.Bits() == 64 {
		return MaskIP(p.Addr().String()), netip.Prefix{}, true
	}
	return "", p, true
}
