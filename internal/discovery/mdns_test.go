// ABOUTME: Tests for mDNS discovery
// ABOUTME: Tests manager setup, TXT records and entry parsing
package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/hashicorp/mdns"
)

func TestNewManager(t *testing.T) {
	mgr := NewManager(Config{ServiceName: "Test Recognizer", Port: 6006})
	if mgr == nil {
		t.Fatal("expected manager to be created")
	}
	if mgr.config.Path != "/asr" {
		t.Errorf("expected default path /asr, got %s", mgr.config.Path)
	}
}

func TestTXTRecords(t *testing.T) {
	mgr := NewManager(Config{Path: "/v1/asr", Version: "0.3.0"})
	txt := mgr.txtRecords()

	if len(txt) != 2 || txt[0] != "path=/v1/asr" || txt[1] != "version=0.3.0" {
		t.Errorf("unexpected TXT records: %v", txt)
	}
}

func TestEntryToServer(t *testing.T) {
	entry := &mdns.ServiceEntry{
		Name:       "kitchen._asrstream._tcp.local.",
		AddrV4:     net.ParseIP("192.168.1.20"),
		Port:       6006,
		InfoFields: []string{"version=0.3.0", "path=/asr"},
	}

	server := entryToServer(entry)
	if server == nil {
		t.Fatal("expected server")
	}
	if server.Name != "kitchen" {
		t.Errorf("expected name kitchen, got %s", server.Name)
	}
	if got := server.Endpoint(); got != "ws://192.168.1.20:6006/asr" {
		t.Errorf("unexpected endpoint %s", got)
	}
}

func TestEntryWithoutIPv4(t *testing.T) {
	if server := entryToServer(&mdns.ServiceEntry{Name: "v6only"}); server != nil {
		t.Errorf("expected nil server, got %+v", server)
	}
}

func TestEndpointDefaultPath(t *testing.T) {
	s := &ServerInfo{Host: "10.0.0.2", Port: 7000}
	if got := s.Endpoint(); got != "ws://10.0.0.2:7000/asr" {
		t.Errorf("unexpected endpoint %s", got)
	}
}

func TestFindServerHonorsContext(t *testing.T) {
	mgr := NewManager(Config{})
	defer mgr.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if _, err := mgr.FindServer(ctx); err == nil {
		t.Error("expected error from cancelled context")
	}
	if time.Since(start) > time.Second {
		t.Error("FindServer did not return promptly")
	}
}
