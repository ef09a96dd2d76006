package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kbukum/lifescribe/security/tlstest"
)

func TestBuild(t *testing.T) {
	certs := tlstest.Generate(t)

	tests := []struct {
		name    string
		cfg     *TLSConfig
		wantNil bool
		wantErr string
		check   func(t *testing.T, c *tls.Config)
	}{
		{name: "nil", cfg: nil, wantNil: true},
		{name: "zero value", cfg: &TLSConfig{}, wantNil: true},
		{
			name: "skip verify",
			cfg:  &TLSConfig{SkipVerify: true},
			check: func(t *testing.T, c *tls.Config) {
				if !c.InsecureSkipVerify || c.MinVersion != tls.VersionTLS12 {
					t.Errorf("got skip=%v min=%x", c.InsecureSkipVerify, c.MinVersion)
				}
			},
		},
		{
			name: "server name and min version",
			cfg:  &TLSConfig{ServerName: "whisper.internal", MinVersion: tls.VersionTLS13},
			check: func(t *testing.T, c *tls.Config) {
				if c.ServerName != "whisper.internal" || c.MinVersion != tls.VersionTLS13 {
					t.Errorf("got server=%q min=%x", c.ServerName, c.MinVersion)
				}
			},
		},
		{
			name: "ca and client certificate",
			cfg:  &TLSConfig{CAFile: certs.CAFile, CertFile: certs.CertFile, KeyFile: certs.KeyFile},
			check: func(t *testing.T, c *tls.Config) {
				if c.RootCAs == nil || len(c.Certificates) != 1 {
					t.Errorf("got roots=%v certs=%d", c.RootCAs != nil, len(c.Certificates))
				}
			},
		},
		{name: "missing ca", cfg: &TLSConfig{CAFile: "/nonexistent/ca.pem"}, wantErr: "read ca_file"},
		{name: "invalid ca", cfg: &TLSConfig{CAFile: tlstest.InvalidPEM(t)}, wantErr: "no certificates in ca_file"},
		{
			name:    "missing client certificate",
			cfg:     &TLSConfig{CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"},
			wantErr: "load client certificate",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.cfg.Build()
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("Build() error = %v, want %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if tc.wantNil {
				if got != nil {
					t.Errorf("expected nil config, got %+v", got)
				}
				return
			}
			tc.check(t, got)
		})
	}
}

func TestValidate(t *testing.T) {
	var nilCfg *TLSConfig
	if err := nilCfg.Validate(); err != nil {
		t.Errorf("nil config: %v", err)
	}
	if err := (&TLSConfig{CertFile: "cert.pem"}).Validate(); err == nil {
		t.Error("expected error when key_file is missing")
	}
	if err := (&TLSConfig{CertFile: "cert.pem", KeyFile: "key.pem"}).Validate(); err != nil {
		t.Errorf("cert and key: %v", err)
	}
}

func TestIsEnabled(t *testing.T) {
	var nilCfg *TLSConfig
	if nilCfg.IsEnabled() || (&TLSConfig{}).IsEnabled() {
		t.Error("empty config must not be enabled")
	}
	if !(&TLSConfig{CAFile: "ca.pem"}).IsEnabled() {
		t.Error("config with a CA must be enabled")
	}
}

func TestTransport(t *testing.T) {
	certs := tlstest.Generate(t)
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	srv.TLS = &tls.Config{Certificates: []tls.Certificate{certs.Server}}
	srv.StartTLS()
	defer srv.Close()

	none, err := (&TLSConfig{}).Transport()
	if err != nil || none != nil {
		t.Fatalf("empty config: transport=%v err=%v", none, err)
	}

	tr, err := (&TLSConfig{CAFile: certs.CAFile}).Transport()
	if err != nil {
		t.Fatalf("Transport() error = %v", err)
	}
	resp, err := (&http.Client{Transport: tr}).Get(srv.URL)
	if err != nil {
		t.Fatalf("request with the test CA failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}

	if _, err := (&TLSConfig{CertFile: "only-cert.pem"}).Transport(); err == nil {
		t.Error("expected validation error")
	}
}
