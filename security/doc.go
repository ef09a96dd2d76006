// Package security builds the TLS client configuration for the
// transcription and diarization sidecars.
//
//	cfg := security.TLSConfig{
//	    CAFile:   "/etc/lifescribe/ca.pem",
//	    CertFile: "/etc/lifescribe/client.pem",
//	    KeyFile:  "/etc/lifescribe/client-key.pem",
//	}
//
//	transport, err := cfg.Transport()
package security
