// Package main generates the self-signed certificate and key used to serve
// the vendor API over HTTPS, writing them under the "certs" directory.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atinyakov/venditori/internal/certgen"
)

func main() {
	dir := flag.String("out", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma-separated DNS names and IPs")
	validFor := flag.Duration("valid", certgen.DefaultValidity, "certificate lifetime")
	flag.Parse()

	certPath, keyPath, err := run(*dir, splitHosts(*hosts), *validFor)
	if err != nil {
		fmt.Fprintln(os.Stderr, "certgen:", err)
		os.Exit(1)
	}
	fmt.Printf("Certificate written to %s, key to %s\n", certPath, keyPath)
}

func run(dir string, hosts []string, validFor time.Duration) (string, string, error) {
	certPEM, keyPEM, err := certgen.GenerateServerCertificate(hosts, validFor)
	if err != nil {
		return "", "", err
	}
	certPath := filepath.Join(dir, "server.crt")
	keyPath := filepath.Join(dir, "server.key")
	if err := certgen.WriteKeyPair(certPath, keyPath, certPEM, keyPEM); err != nil {
		return "", "", err
	}
	return certPath, keyPath, nil
}

func splitHosts(s string) []string {
	var hosts []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}
