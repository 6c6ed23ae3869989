//go:build linux

package cmd

import "grimm.is/l2bridge/internal/network"

func hostLinks() network.Links { return network.Netlink{} }
