package debug

import (
	"bufio"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/davecgh/go-spew/spew"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// StartUtilities spins off the services associated with debug mode: the
// default pprof HTTP server (see https://golang.org/pkg/net/http/pprof/) and a
// Prometheus endpoint serving the gateway's metrics.
func StartUtilities(logger *logrus.Logger, pprofPort, metricsPort int) {
	startPprofServer(logger, pprofPort)
	startMetricsServer(logger, metricsPort)
}

func startPprofServer(logger *logrus.Logger, port int) {
	listenerAddr := fmt.Sprintf("localhost:%d", port)
	logger.Infof("starting pprof server on %s", listenerAddr)

	go func() {
		if err := http.ListenAndServe(listenerAddr, nil); err != nil {
			logger.Infof("error starting pprof server: %s", err)
		}
	}()
}

func startMetricsServer(logger *logrus.Logger, port int) {
	listenerAddr := fmt.Sprintf(":%d", port)
	logger.Infof("serving metrics on %s/metrics", listenerAddr)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(listenerAddr, mux); err != nil {
			logger.Infof("error starting metrics server: %s", err)
		}
	}()
}

type PrintPacketParams struct {
	Writer       *bufio.Writer
	ServerType   string
	ClientPacket bool
	// FirstMessage bodies start with the client OS rather than an opcode.
	FirstMessage bool
	Data         []byte
}

// PrintPacket writes a hex dump of a decoded message body. The first byte of
// every body is the opcode.
func PrintPacket(params PrintPacketParams) {
	direction := "server -> client"
	if params.ClientPacket {
		direction = "client -> server"
	}

	label := "first message"
	if !params.FirstMessage {
		var opcode byte
		if len(params.Data) > 0 {
			opcode = params.Data[0]
		}
		label = fmt.Sprintf("opcode=0x%02X", opcode)
	}

	_, _ = fmt.Fprintf(params.Writer, "[%s] %s %s (%d bytes)\n",
		params.ServerType, direction, label, len(params.Data))
	_, _ = params.Writer.WriteString(spew.Sdump(params.Data))
	_ = params.Writer.Flush()
}
