package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nm-morais/go-por/configs"
	"github.com/nm-morais/go-por/pkg/analytics"
	"github.com/nm-morais/go-por/pkg/logs"
	"github.com/nm-morais/go-por/pkg/message"
	"github.com/nm-morais/go-por/pkg/metrics"
	"github.com/nm-morais/go-por/pkg/node"
	"github.com/nm-morais/go-por/pkg/peer"
	"github.com/nm-morais/go-por/pkg/protocol"
	"github.com/nm-morais/go-por/pkg/schema"
	"github.com/nm-morais/go-por/pkg/serialization"
	"github.com/nm-morais/go-por/pkg/transport"
)

const name = "PoR"

func main() {
	var (
		configPath  string
		nodeName    string
		listenAddr  string
		contact     string
		codecName   string
		metricsAddr string
		interval    time.Duration
	)
	flag.StringVar(&configPath, "config", "", "path to a JSON config file")
	flag.StringVar(&nodeName, "name", "", "node name")
	flag.StringVar(&listenAddr, "l", "", "listen address")
	flag.StringVar(&contact, "contact", "", "node to probe, as name@host:port")
	flag.StringVar(&codecName, "codec", "", "wire codec: binary or schema")
	flag.StringVar(&metricsAddr, "metrics", "", "address to serve /metrics on")
	flag.DurationVar(&interval, "interval", 0, "probe interval")
	flag.Parse()

	conf := configs.DefaultConfig()
	if configPath != "" {
		var err error
		if conf, err = configs.ReadConfigFromFile(configPath); err != nil {
			log.Fatalf("Could not read config: %s", err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			conf.NodeName = nodeName
		case "l":
			conf.ListenAddr = listenAddr
		case "contact":
			conf.Contact = contact
		case "codec":
			conf.Codec = codecName
		case "metrics":
			conf.MetricsAddr = metricsAddr
		case "interval":
			conf.ProbeInterval.Duration = interval
		}
	})
	if err := conf.Validate(); err != nil {
		log.Fatal(err)
	}
	if err := logs.SetDefaultLevel(conf.LogLevel); err != nil {
		log.Fatal(err)
	}
	logger := logs.NewLogger(name)

	if err := run(conf, logger); err != nil {
		logger.Fatal(err)
	}
}

func newCodec(conf configs.NodeConfig) node.Codec {
	if conf.Codec == "schema" {
		return schema.NewCodec()
	}
	return serialization.NewCodec()
}

func parseContact(contact string) (peer.Peer, error) {
	contactName, hostPort, ok := strings.Cut(contact, "@")
	if !ok || contactName == "" {
		return nil, fmt.Errorf("contact %q is not name@host:port", contact)
	}
	addr, err := net.ResolveTCPAddr("tcp", hostPort)
	if err != nil {
		return nil, err
	}
	return peer.NewPeer(contactName, addr), nil
}

func run(conf configs.NodeConfig, logger *log.Logger) error {
	tr, err := transport.NewTCPTransport(transport.TCPConfig{
		NodeName:       conf.NodeName,
		NodeVersion:    conf.NodeVersion,
		ListenAddr:     conf.ListenAddr,
		DialTimeout:    conf.DialTimeout.Duration,
		MaxConnections: conf.MaxConnections,
		PoolSize:       conf.PoolSize,
	})
	if err != nil {
		return err
	}
	defer tr.Close()

	m := metrics.New()
	observer := protocol.MultiObserver{protocol.NewLoggingObserver(logger), m}
	self := peer.Named(conf.NodeName)
	handler := protocol.NewHandler(self, protocol.WithObserver(observer))
	n := node.New(self, newCodec(conf), handler, tr, observer)

	tracker := analytics.NewProbeTracker(conf.NodeName, 0.2, 0.8)
	err = handler.RegisterMessageHandler(message.ResponseMessageType, func(sender peer.Peer, msg message.Message) {
		resp := msg.(message.ResponseMessage)
		rtt, ok := tracker.Observe(sender.Name(), resp)
		if !ok {
			return
		}
		m.ObserveRoundTrip(rtt)
		smoothed, _ := tracker.Latency(sender.Name())
		logger.Infof("Probe %s answered by %s in %s (avg %s)", resp.RequestID.CanonicalString(), sender.Name(), rtt, smoothed)
	})
	if err != nil {
		return err
	}

	if listenErr := tr.Listen(n.OnMessage); listenErr != nil {
		return listenErr
	}
	logger.Infof("Node %s up, codec %s", tr.Self().ToString(), n.Codec().Name())

	go func() {
		for f := range tr.Failures() {
			m.SendFailed()
			logger.Warnf("Message to %s was not delivered: %s", f.Target.ToString(), f.Err.Reason())
		}
	}()

	if conf.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		go func() {
			if err := http.ListenAndServe(conf.MetricsAddr, mux); err != nil {
				logger.Errorf("Metrics server stopped: %s", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if conf.Contact == "" || conf.ProbeInterval.Duration == 0 {
		logger.Infof("I'm a contact node")
		<-ctx.Done()
		return nil
	}
	target, err := parseContact(conf.Contact)
	if err != nil {
		return err
	}
	probe(ctx, n, target, conf.ProbeInterval.Duration, logger)
	return nil
}

func probe(ctx context.Context, n *node.Node, target peer.Peer, interval time.Duration, logger *log.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := n.Probe(target, []byte("ping")); err != nil {
			logger.Errorf("Probe to %s failed: %s", target.ToString(), err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
