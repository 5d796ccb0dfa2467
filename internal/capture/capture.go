// Package capture implements the Capture Driver: it opens a live interface,
// installs the ARP capture filter, and feeds each captured frame to a
// caller-supplied handler. Grounded on the teacher's sniff/sniff.go
// (WatchArp's pcap.OpenLive/gopacket.NewPacketSource loop), adapted to a
// single-threaded delivery model — the teacher dispatches each packet via
// `go handleWatchArpPacket(...)`, which spec.md §5's serial,
// no-reordering pipeline rules out.
package capture

import (
	"context"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"github.com/jamescort/antidote-ng/internal/errs"
)

// readTimeout is fixed at 10ms, per spec.md §4.4, to tolerate older
// capture libraries that reject an infinite (-1) read timeout.
const readTimeout = 10 * time.Millisecond

// snapLen is large enough to capture a full Ethernet+ARP frame with room
// to spare; ARP frames never approach it.
const snapLen = 262144

// Handler is invoked once per captured frame, in arrival order, on the
// same goroutine that calls Run.
type Handler func(frame []byte)

// Driver owns the open pcap handle for one interface.
type Driver struct {
	handle *pcap.Handle
}

// Open resolves device (auto-selecting the first non-loopback interface
// that has at least one address when device is empty), opens it for live capture in the
// requested promiscuous mode, and installs filterExpr as a BPF program.
// Each distinct failure mode is reported as a specific errs.Kind, per
// spec.md §4.4 and §7.
func Open(device string, promiscuous bool, filterExpr string) (*Driver, error) {
	resolved, err := resolveDevice(device)
	if err != nil {
		return nil, errs.New(errs.InterfaceLookup, err)
	}

	// Required even though the compiled filter program does not reference
	// the network/mask values, per spec.md §4.4.
	if _, _, err := pcap.LookupNet(resolved); err != nil {
		return nil, errs.New(errs.NetworkLookup, err)
	}

	handle, err := pcap.OpenLive(resolved, snapLen, promiscuous, readTimeout)
	if err != nil {
		return nil, errs.New(errs.InterfaceOpen, err)
	}

	instructions, err := handle.CompileBPFFilter(filterExpr)
	if err != nil {
		handle.Close()
		return nil, errs.New(errs.FilterCompile, err)
	}
	if err := handle.SetBPFInstructionFilter(instructions); err != nil {
		handle.Close()
		return nil, errs.New(errs.FilterInstall, err)
	}

	return &Driver{handle: handle}, nil
}

// resolveDevice returns device unchanged if non-empty, otherwise the
// first non-loopback interface pcap can see that has at least one address.
// The interface's up/down state is not checked.
func resolveDevice(device string) (string, error) {
	if device != "" {
		return device, nil
	}

	devices, err := pcap.FindAllDevs()
	if err != nil {
		return "", err
	}
	for _, d := range devices {
		if d.Flags&pcap.PCAP_IF_LOOPBACK != 0 {
			continue
		}
		if len(d.Addresses) == 0 {
			continue
		}
		return d.Name, nil
	}
	return "", errs.New(errs.InterfaceLookup, errNoSuitableDevice{})
}

type errNoSuitableDevice struct{}

func (errNoSuitableDevice) Error() string { return "no non-loopback interface available" }

// Run delivers captured frames to handler, one at a time, in arrival
// order, until ctx is cancelled or the capture source is exhausted. It
// never fans packets out to other goroutines — the spec's single-threaded
// pipeline runs entirely on the caller's goroutine.
func (d *Driver) Run(ctx context.Context, handler Handler) error {
	src := gopacket.NewPacketSource(d.handle, d.handle.LinkType())
	packets := src.Packets()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case packet, ok := <-packets:
			if !ok {
				return nil
			}
			handler(packet.Data())
		}
	}
}

// Close releases the underlying pcap handle.
func (d *Driver) Close() {
	d.handle.Close()
}
