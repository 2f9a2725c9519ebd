package store

import (
	"fmt"
	"net"
	"path"
	"strings"
)

// DefaultPort is used for servers given without a port
const DefaultPort = "2181"

// Target is a parsed ZooKeeper connection target
type Target struct {
	Servers []string // host:port pairs
	Chroot  string   // "" or an absolute path without trailing slash
}

// ParseTarget parses "host[:port][,host[:port]...][/chroot]".
func ParseTarget(raw string) (*Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty connection target")
	}

	hosts, chroot := raw, ""
	if i := strings.Index(raw, "/"); i >= 0 {
		hosts, chroot = raw[:i], raw[i:]
	}

	t := &Target{}
	for _, h := range strings.Split(hosts, ",") {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, fmt.Errorf("invalid connection target %q: empty server", raw)
		}
		if _, _, err := net.SplitHostPort(h); err != nil {
			h = net.JoinHostPort(h, DefaultPort)
		}
		t.Servers = append(t.Servers, h)
	}

	if chroot != "" {
		if strings.Contains(chroot, "//") {
			return nil, fmt.Errorf("invalid chroot %q", chroot)
		}
		if trimmed := strings.Trim(chroot, "/"); trimmed != "" {
			for _, seg := range strings.Split(trimmed, "/") {
				if seg == "." || seg == ".." {
					return nil, fmt.Errorf("invalid chroot %q", chroot)
				}
			}
			t.Chroot = "/" + trimmed
		}
	}
	return t, nil
}

// String renders the target back in connection-string form
func (t *Target) String() string {
	return strings.Join(t.Servers, ",") + t.Chroot
}

// Resolve maps a mount-relative store path onto the server namespace
func (t *Target) Resolve(p string) string {
	p = path.Clean("/" + p)
	if t.Chroot == "" {
		return p
	}
	if p == "/" {
		return t.Chroot
	}
	return t.Chroot + p
}
