package credential

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"time"
)

// X509Checker checks the first certificate in a PEM file. For a proxy file
// that is the proxy certificate itself, which is what expires first.
type X509Checker struct {
	// Now defaults to time.Now.
	Now func() time.Time
}

// CheckExpiry reports whether the certificate's NotAfter is later than
// now+within. An unreadable file or one without a certificate is an error.
func (c X509Checker) CheckExpiry(path string, within time.Duration) (bool, error) {
	notAfter, err := NotAfter(path)
	if err != nil {
		return false, err
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return notAfter.After(now().Add(within)), nil
}

// NotAfter returns the expiry time of the first CERTIFICATE block in path.
func NotAfter(path string) (time.Time, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return time.Time{}, err
	}

	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return time.Time{}, fmt.Errorf("no certificate found in %s", path)
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse certificate in %s: %w", path, err)
		}
		return cert.NotAfter, nil
	}
}
