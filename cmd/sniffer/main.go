// The sniffer decodes captured login and game traffic. It recovers the
// session key from each client's first message with the server's RSA key and
// prints every frame in the clear.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/dcrodman/otgate/internal/encryption"
)

var (
	captureFile = flag.String("f", "", "pcap file to decode")
	keyFile     = flag.String("key", "key.pem", "PEM encoded RSA private key of the server")
	loginPort   = flag.Uint("login-port", 7171, "Port of the LOGIN server")
	gamePort    = flag.Uint("game-port", 7172, "Port of the GAME server")
	verbose     = flag.Bool("verbose", false, "Dump the decoded frame structure as well as its bytes")
)

func main() {
	flag.Parse()
	if *captureFile == "" {
		exit("a capture file is required (-f)")
	}

	key, err := encryption.LoadRSAKey(*keyFile)
	if err != nil {
		exit("error loading key: %v", err)
	}

	f, err := os.Open(*captureFile)
	if err != nil {
		exit("error opening capture: %v", err)
	}
	defer f.Close()

	reader, err := pcapgo.NewReader(f)
	if err != nil {
		exit("error reading capture: %v", err)
	}

	writer := bufio.NewWriter(os.Stdout)
	s := newSniffer(writer, key, uint16(*loginPort), uint16(*gamePort))
	s.Verbose = *verbose

	packetSource := gopacket.NewPacketSource(reader, reader.LinkType())
	for packet := range packetSource.Packets() {
		tcpLayer := packet.Layer(layers.LayerTypeTCP)
		if tcpLayer == nil {
			continue
		}
		tcp := tcpLayer.(*layers.TCP)
		if len(tcp.Payload) == 0 {
			continue
		}
		flow := packet.NetworkLayer().NetworkFlow()
		s.handleSegment(flow.Src().String(), uint16(tcp.SrcPort), flow.Dst().String(), uint16(tcp.DstPort), tcp.Payload)
	}
	_ = writer.Flush()
}

func exit(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
	os.Exit(1)
}
