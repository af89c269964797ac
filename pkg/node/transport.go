// Copyright 2025 Certen Protocol
//
// HTTP+JSON transport between validators, grounded on the teacher's
// HTTPPeerManager (pkg/batch/peer_manager.go): a shared *http.Client with a
// fixed timeout, sender identity carried in headers rather than gRPC
// metadata.

package node

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	headerValidatorID = "X-Validator-ID"
	headerListenAddr  = "X-Listen-Address"
)

// Transport is the HTTP client used for all validator-to-validator calls.
// TLSConfig is supplied by the embedding binary; this module never loads
// certificate material itself (TLS provisioning is a Non-goal).
type Transport struct {
	client      *http.Client
	selfID      string
	selfAddress string
}

// NewTransport builds a Transport with the given request timeout and
// optional TLS config (nil disables TLS).
func NewTransport(selfID, selfAddress string, timeout time.Duration, tlsConfig *tls.Config) *Transport {
	transport := &http.Transport{}
	if tlsConfig != nil {
		transport.TLSClientConfig = tlsConfig
	}
	return &Transport{
		client:      &http.Client{Timeout: timeout, Transport: transport},
		selfID:      selfID,
		selfAddress: selfAddress,
	}
}

// Post sends body as JSON to addr+path and decodes the JSON response into out.
// out may be nil if the caller doesn't care about the response body.
func (t *Transport) Post(ctx context.Context, addr, path string, body, out interface{}) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := addr + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(headerValidatorID, t.selfID)
	httpReq.Header.Set(headerListenAddr, t.selfAddress)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response from %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("peer %s returned status %d: %s", url, resp.StatusCode, string(respBody))
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}

// writeJSON writes v as the JSON body of an HTTP response.
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg})
}
