// steerd is the cooperative Wi-Fi steering controller (§1-§9): it tracks
// every station heard across the local AP daemon's radios and any peers
// reachable over the gossip protocol, and steers clients toward the best
// available AP via 802.11k/v.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"steerd/internal/apdaemon"
	"steerd/internal/aputil"
	"steerd/internal/basedef"
	"steerd/internal/broker"
	"steerd/internal/config"
	"steerd/internal/controller"
	"steerd/internal/gossip"
	"steerd/internal/mcp"
	"steerd/internal/metrics"
	"steerd/internal/mgmt"
	"steerd/internal/model"
)

const pname = "steerd"

// verboseFlag counts -v repetitions, the way most daemons in this fleet
// turn verbosity up one notch per repeat.
type verboseFlag int

func (v *verboseFlag) String() string { return fmt.Sprintf("%d", int(*v)) }
func (v *verboseFlag) Set(string) error {
	*v++
	return nil
}
func (v *verboseFlag) IsBoolFlag() bool { return true }

func main() {
	flag.CommandLine.Init(os.Args[0], flag.ContinueOnError)
	var verbosity verboseFlag
	flag.Var(&verbosity, "v", "increase log verbosity (repeatable)")
	useSyslog := flag.Bool("s", false, "log to syslog instead of stderr")
	var ifaces []string
	flag.Func("i", "radio interface to gossip on (repeatable; also accepts a comma-separated list)", func(s string) error {
		ifaces = append(ifaces, strings.Split(s, ",")...)
		return nil
	})
	metricsAddr := flag.String("metrics-addr", ":"+basedef.SteerdPrometheusPort, "address to serve /metrics on")
	name := flag.String("name", pname, "daemon name reported to the supervisor and bus")
	ipv6 := flag.Bool("ipv6", true, "multicast the gossip protocol over IPv6 link-local")
	ipv4 := flag.Bool("ipv4", false, "also broadcast the gossip protocol over IPv4")
	if err := flag.CommandLine.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	level := aputil.LevelForVerbosity(int(verbosity))
	log := aputil.NewLogger(*name, level, *useSyslog)
	defer log.Sync()

	mcpd, err := mcp.New(*name)
	if err != nil {
		log.Errorw("failed to connect to supervisor", "error", err)
	}

	bus, err := broker.New(*name, log)
	if err != nil {
		log.Errorw("failed to connect to bus", "error", err)
		if mcpd != nil {
			mcpd.SetState(mcp.Broken)
		}
		os.Exit(-1)
	}
	defer bus.Close()

	store := config.NewStore()

	var transports []gossip.Transport
	if *ipv6 {
		t, err := gossip.NewIPv6Transport(ifaces)
		if err != nil {
			log.Warnw("ipv6 gossip transport unavailable", "error", err)
		} else {
			transports = append(transports, t)
		}
	}
	if *ipv4 {
		t, err := gossip.NewIPv4Transport(ifaces)
		if err != nil {
			log.Warnw("ipv4 gossip transport unavailable", "error", err)
		} else {
			transports = append(transports, t)
		}
	}

	var client apdaemon.Client
	zc, err := apdaemon.DialZMQ(
		basedef.LocalZmqURL+":"+basedef.ApdaemonReqPort,
		basedef.LocalZmqURL+":"+basedef.ApdaemonSubPort,
	)
	if err != nil {
		log.Warnw("ap daemon connection unavailable, running without one", "error", err)
	} else {
		client = zc
	}

	ctl := controller.New(log, store, client, transports)

	bus.Handle(basedef.TopicConfig, func(payload []byte) {
		log.Debugw("config change notification received", "bytes", len(payload))
	})

	for i, name := range ifaces {
		ctl.AddLocalNode(model.NewLocalNode(fmt.Sprintf("node%d", i), name, i))
	}

	metrics.Register()
	metrics.Serve(*metricsAddr)

	mgmtSrv, err := mgmt.Serve(ctl.Mgmt(), log)
	if err != nil {
		log.Errorw("failed to start management surface", "error", err)
		if mcpd != nil {
			mcpd.SetState(mcp.Broken)
		}
		os.Exit(-1)
	}
	defer mgmtSrv.Close()

	if mcpd != nil {
		mcpd.SetState(mcp.Online)
	}
	log.Infow("steerd starting", "interfaces", ifaces, "level", level.String())

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Infow("shutting down")
		cancel()
	}()

	if err := ctl.Run(ctx); err != nil && err != context.Canceled {
		log.Errorw("controller loop exited with error", "error", err)
		if mcpd != nil {
			mcpd.SetState(mcp.Broken)
		}
		os.Exit(-1)
	}

	os.Exit(0)
}
