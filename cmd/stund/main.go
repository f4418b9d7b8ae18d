// Command stund is a basic STUN server answering Binding requests over
// UDP and TCP.
package main

import (
	"flag"
	"net"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/halonet/stun"
)

type config struct {
	// ListenUDP and ListenTCP are listen addresses; empty disables the
	// listener.
	ListenUDP string `yaml:"listen_udp"`
	ListenTCP string `yaml:"listen_tcp"`
	Software  string `yaml:"software"`
	// Fingerprint adds FINGERPRINT to every response.
	Fingerprint bool `yaml:"fingerprint"`
	// SurfaceUnknownAttributes disables the automatic 420 response.
	SurfaceUnknownAttributes bool   `yaml:"surface_unknown_attributes"`
	LogLevel                 string `yaml:"log_level"`
}

func defaultConfig() config {
	return config{
		ListenUDP: ":3478",
		Software:  "halonet-stund",
		LogLevel:  "info",
	}
}

func loadConfig(path string, log *logrus.Logger) config {
	cfg := defaultConfig()
	if path == "" {
		return cfg
	}
	b, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		log.WithError(err).Fatal("failed to read config")
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		log.WithError(err).Fatal("failed to parse config")
	}
	return cfg
}

func main() {
	configPath := flag.String("config", "", "path to yaml config")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := loadConfig(*configPath, log)
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	srv := &stun.Server{
		Software:                 cfg.Software,
		Fingerprint:              cfg.Fingerprint,
		SurfaceUnknownAttributes: cfg.SurfaceUnknownAttributes,
		LoggerFactory:            &logrusFactory{log: log},
	}

	errCh := make(chan error, 2)
	serving := false
	if cfg.ListenUDP != "" {
		conn, err := net.ListenPacket("udp", cfg.ListenUDP)
		if err != nil {
			log.WithError(err).Fatal("failed to listen udp")
		}
		log.WithField("addr", cfg.ListenUDP).Info("listening udp")
		serving = true
		go func() { errCh <- srv.Serve(stun.NewDatagramTransport(conn)) }()
	}
	if cfg.ListenTCP != "" {
		ln, err := net.Listen("tcp", cfg.ListenTCP)
		if err != nil {
			log.WithError(err).Fatal("failed to listen tcp")
		}
		log.WithField("addr", cfg.ListenTCP).Info("listening tcp")
		serving = true
		go func() { errCh <- serveTCP(srv, ln, log) }()
	}
	if !serving {
		log.Fatal("no listeners configured")
	}
	log.WithError(<-errCh).Fatal("server stopped")
}

func serveTCP(srv *stun.Server, ln net.Listener, log *logrus.Logger) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go func() {
			t := stun.NewStreamTransport(conn)
			if err := srv.Serve(t); err != nil {
				log.WithField("remote", conn.RemoteAddr()).WithError(err).Debug("connection closed")
			}
			_ = t.Close()
		}()
	}
}
