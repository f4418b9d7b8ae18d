// Command stun-client resolves the externally visible address of the
// local host by sending a Binding request to a STUN server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/halonet/stun"
)

func main() {
	uri := flag.String("uri", "stun:stun.l.google.com:19302", "STUN server URI")
	network := flag.String("net", "udp", "network to use (udp or tcp)")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	parsed, err := stun.ParseURI(*uri)
	if err != nil {
		log.WithError(err).Fatal("invalid URI")
	}
	client, err := stun.DialURI(parsed, &stun.DialConfig{Net: *network})
	if err != nil {
		log.WithError(err).Fatal("failed to dial")
	}
	defer client.Close() //nolint:errcheck

	req := stun.MustBuild(stun.TransactionID, stun.BindingRequest)
	if err := client.Do(req, nil, func(e stun.Event) {
		if e.Error != nil {
			log.WithError(e.Error).Fatal("transaction failed")
		}
		var addr stun.XORMappedAddress
		if getErr := addr.GetFrom(e.Message); getErr != nil {
			log.WithError(getErr).Fatal("no XOR-MAPPED-ADDRESS in response")
		}
		fmt.Fprintln(os.Stdout, addr.String())
	}); err != nil {
		log.WithError(err).Fatal("failed to send request")
	}
}
