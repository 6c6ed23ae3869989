package testutil

import (
	"os"
	"testing"
)

// RequireRoot skips the test unless it runs as root with L2BRIDGE_NET_TEST set.
// Netlink subscriptions and AF_PACKET sockets need both.
func RequireRoot(t *testing.T) {
	t.Helper()
	if os.Getenv("L2BRIDGE_NET_TEST") == "" {
		t.Skip("Skipping test: requires L2BRIDGE_NET_TEST environment")
	}
	if os.Geteuid() != 0 {
		t.Skip("Skipping test: requires root")
	}
}
