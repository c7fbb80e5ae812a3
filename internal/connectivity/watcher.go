package connectivity

import (
	"context"
	"net"
	"time"
)

// DefaultWatchInterval is how often interfaces are polled for changes.
const DefaultWatchInterval = 2 * time.Second

// NetInterfaceWatcher polls the host network interfaces. An interface counts
// as usable when it is up, not a loopback and has at least one address.
type NetInterfaceWatcher struct {
	pollInterval time.Duration
	interfaces   func() ([]net.Interface, error)
	addrs        func(iface net.Interface) ([]net.Addr, error)
}

func NewNetInterfaceWatcher(pollInterval time.Duration) *NetInterfaceWatcher {
	return &NetInterfaceWatcher{
		pollInterval: pollInterval,
		interfaces:   net.Interfaces,
		addrs: func(iface net.Interface) ([]net.Addr, error) {
			return iface.Addrs()
		},
	}
}

func (w *NetInterfaceWatcher) Available() bool {
	ifaces, err := w.interfaces()
	if err != nil {
		return false
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := w.addrs(iface)
		if err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}

func (w *NetInterfaceWatcher) Watch(ctx context.Context) <-chan bool {
	out := make(chan bool, 1)

	go func() {
		defer close(out)

		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()

		last := w.Available()
		if !send(ctx, out, last) {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if now := w.Available(); now != last {
					last = now
					if !send(ctx, out, now) {
						return
					}
				}
			}
		}
	}()

	return out
}

func send(ctx context.Context, out chan<- bool, v bool) bool {
	select {
	case out <- v:
		return true
	case <-ctx.Done():
		return false
	}
}
