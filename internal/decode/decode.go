// Package decode turns a raw captured Ethernet+ARP frame into a typed
// ArpObservation. Grounded on the teacher's newUnpackedArp/GetArpLayer
// helpers (ImpostorKeanu-eavesarp-ng's arp.go and sniff/sniff.go), which
// use gopacket/layers to pull apart an Ethernet-framed ARP packet rather
// than hand-rolling the byte offsets original_source/src/antidote.c used.
package decode

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Operation is the decoded ARP opcode, collapsed to the three outcomes the
// audit engine cares about.
type Operation int

const (
	OpOther Operation = iota
	OpRequest
	OpReply
)

// ArpObservation is the transient record the Frame Decoder produces for
// each captured frame. It is never stored; the audit engine copies the
// fields it needs into the IP state table.
type ArpObservation struct {
	Op           Operation
	SenderMACEth [6]byte
	SenderMACArp [6]byte
	SenderIP     [4]byte
	TargetIP     [4]byte
}

// Decode parses buf, which is expected to begin with an Ethernet II header
// followed by an ARP payload — a guarantee the capture filter provides.
// Decode is infallible: any frame it cannot classify as an ARP request or
// reply (including RARP, and frames too short to contain both headers)
// yields an observation with Op == OpOther and zeroed address fields.
func Decode(buf []byte) ArpObservation {
	packet := gopacket.NewPacket(buf, layers.LayerTypeEthernet, gopacket.DecodeOptions{
		Lazy:   true,
		NoCopy: true,
	})

	ethLayer := packet.Layer(layers.LayerTypeEthernet)
	arpLayer := packet.Layer(layers.LayerTypeARP)
	if ethLayer == nil || arpLayer == nil {
		return ArpObservation{Op: OpOther}
	}

	eth, ok := ethLayer.(*layers.Ethernet)
	if !ok {
		return ArpObservation{Op: OpOther}
	}
	arp, ok := arpLayer.(*layers.ARP)
	if !ok {
		return ArpObservation{Op: OpOther}
	}

	if len(arp.SourceHwAddress) != 6 || len(arp.SourceProtAddress) != 4 || len(arp.DstProtAddress) != 4 {
		return ArpObservation{Op: OpOther}
	}

	obs := ArpObservation{Op: classify(arp.Operation)}
	if obs.Op == OpOther {
		return obs
	}

	copy(obs.SenderMACEth[:], eth.SrcMAC)
	copy(obs.SenderMACArp[:], arp.SourceHwAddress)
	copy(obs.SenderIP[:], arp.SourceProtAddress)
	copy(obs.TargetIP[:], arp.DstProtAddress)

	return obs
}

// classify maps the ARP operation field (already host-order, per
// gopacket's layer parsing) to an Operation. Reverse-ARP (3/4) and any
// other value fall to OpOther, matching original_source/src/antidote.c's
// processether default branch ("Unrecognised ARP type").
func classify(op uint16) Operation {
	switch op {
	case layers.ARPRequest:
		return OpRequest
	case layers.ARPReply:
		return OpReply
	default:
		return OpOther
	}
}
