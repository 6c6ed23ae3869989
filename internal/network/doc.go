// Package network tracks which bridged interfaces exist on the host.
//
// # Overview
//
// An AvailableInterface declared with a device name is only present in the
// bridging registry while the matching OS link exists. The [Monitor] lists
// links at start, then follows netlink link updates, adding and removing
// registry entries as links appear and disappear.
//
// Interfaces declared without a device are not tracked and stay in the
// registry as configured.
//
// # Platform Support
//
// Link discovery uses netlink and is Linux only. On other platforms
// [Monitor.Start] reports an error and [Monitor.Sync] can still be driven
// through a custom [Links] implementation.
package network
