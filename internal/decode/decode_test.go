package decode

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFrame(t *testing.T, op uint16, srcMACEth, srcMACArp net.HardwareAddr, srcIP, dstIP net.IP) []byte {
	t.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       srcMACEth,
		DstMAC:       net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		EthernetType: layers.EthernetTypeARP,
	}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         op,
		SourceHwAddress:   srcMACArp,
		SourceProtAddress: srcIP.To4(),
		DstHwAddress:      net.HardwareAddr{0, 0, 0, 0, 0, 0},
		DstProtAddress:    dstIP.To4(),
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, arp))
	return buf.Bytes()
}

func TestDecodeRequest(t *testing.T) {
	srcMAC := net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	frame := buildFrame(t, layers.ARPRequest, srcMAC, srcMAC,
		net.IPv4(10, 0, 0, 1), net.IPv4(10, 0, 0, 2))

	obs := Decode(frame)
	assert.Equal(t, OpRequest, obs.Op)
	assert.Equal(t, [4]byte{10, 0, 0, 1}, obs.SenderIP)
	assert.Equal(t, [4]byte{10, 0, 0, 2}, obs.TargetIP)
	assert.Equal(t, [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}, obs.SenderMACEth)
	assert.Equal(t, [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}, obs.SenderMACArp)
}

func TestDecodeReplyWithMismatchedEthAndArpMAC(t *testing.T) {
	ethMAC := net.HardwareAddr{0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa}
	arpMAC := net.HardwareAddr{0xbb, 0xbb, 0xbb, 0xbb, 0xbb, 0xbb}
	frame := buildFrame(t, layers.ARPReply, ethMAC, arpMAC,
		net.IPv4(192, 168, 1, 1), net.IPv4(192, 168, 1, 2))

	obs := Decode(frame)
	assert.Equal(t, OpReply, obs.Op)
	assert.Equal(t, [6]byte{0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa}, obs.SenderMACEth)
	assert.Equal(t, [6]byte{0xbb, 0xbb, 0xbb, 0xbb, 0xbb, 0xbb}, obs.SenderMACArp)
}

func TestDecodeRarpIsOther(t *testing.T) {
	srcMAC := net.HardwareAddr{1, 2, 3, 4, 5, 6}
	frame := buildFrame(t, uint16(3) /* RARP request */, srcMAC, srcMAC,
		net.IPv4(10, 0, 0, 1), net.IPv4(10, 0, 0, 2))

	obs := Decode(frame)
	assert.Equal(t, OpOther, obs.Op)
}

func TestDecodeTooShortIsOther(t *testing.T) {
	obs := Decode([]byte{0x01, 0x02, 0x03})
	assert.Equal(t, OpOther, obs.Op)
	assert.Equal(t, ArpObservation{Op: OpOther}, obs)
}

func TestDecodeRoundTripPreservesFields(t *testing.T) {
	srcMAC := net.HardwareAddr{0x02, 0x42, 0xac, 0x11, 0x00, 0x02}
	senderIP := net.IPv4(172, 16, 0, 5)
	targetIP := net.IPv4(172, 16, 0, 6)
	frame := buildFrame(t, layers.ARPReply, srcMAC, srcMAC, senderIP, targetIP)

	obs := Decode(frame)

	reencoded := buildFrame(t, layers.ARPReply,
		net.HardwareAddr(obs.SenderMACEth[:]),
		net.HardwareAddr(obs.SenderMACArp[:]),
		net.IP(obs.SenderIP[:]),
		net.IP(obs.TargetIP[:]))

	redecoded := Decode(reencoded)
	assert.Equal(t, obs, redecoded)
}
