//go:build !linux

package cmd

import (
	"errors"

	"github.com/vishvananda/netlink"

	"grimm.is/l2bridge/internal/network"
)

var errNoNetlink = errors.New("link monitoring requires netlink (linux only)")

// noLinks reports every link operation as unsupported; interfaces then
// stay in the registry as declared.
type noLinks struct{}

func (noLinks) LinkList() ([]netlink.Link, error) { return nil, errNoNetlink }

func (noLinks) LinkSubscribe(chan<- netlink.LinkUpdate, <-chan struct{}) error {
	return errNoNetlink
}

func hostLinks() network.Links { return noLinks{} }
