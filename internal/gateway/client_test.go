package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// testBackend is a minimal in-process stand-in for opsdeckd: it answers each
// framed request via the registered handler, or stays silent when the
// handler returns nil, nil (used to force timeouts).
type testBackend struct {
	listener net.Listener
	handle   func(req Request) (any, error)
	silence  map[string]bool
}

func startTestBackend(t *testing.T, handle func(req Request) (any, error)) (*testBackend, string) {
	t.Helper()

	dir := t.TempDir()
	socket := filepath.Join(dir, "opsdeckd.sock")

	ln, err := net.Listen("unix", socket)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	b := &testBackend{listener: ln, handle: handle, silence: make(map[string]bool)}
	go b.acceptLoop()
	t.Cleanup(func() { ln.Close(); os.Remove(socket) })

	return b, socket
}

func (b *testBackend) acceptLoop() {
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			return
		}
		go b.serve(conn)
	}
}

func (b *testBackend) serve(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			continue
		}
		if b.silence[req.Method] {
			continue
		}

		resp := Response{ID: req.ID}
		data, err := b.handle(req)
		if err != nil {
			resp.Error = err.Error()
		} else if data != nil {
			encoded, _ := json.Marshal(data)
			resp.Data = encoded
		}
		encoded, _ := json.Marshal(resp)
		conn.Write(append(encoded, '\n'))
	}
}

func dialTest(t *testing.T, socket string, timeout time.Duration) *Client {
	t.Helper()
	c, err := Dial(context.Background(), Options{
		Socket:      socket,
		CallTimeout: timeout,
		DialElapsed: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCallRoundTrip(t *testing.T) {
	_, socket := startTestBackend(t, func(req Request) (any, error) {
		if req.Method != "list_services" {
			t.Errorf("unexpected method %q", req.Method)
		}
		return []*ServiceRecord{
			{Name: "indexer", Status: "running", UptimeSec: 42},
			{Name: "api", Status: "stopped"},
		}, nil
	})

	c := dialTest(t, socket, 2*time.Second)

	services, err := c.ListServices(context.Background())
	if err != nil {
		t.Fatalf("ListServices: %v", err)
	}
	if len(services) != 2 {
		t.Fatalf("expected 2 services, got %d", len(services))
	}
	if services[0].Name != "indexer" || services[0].UptimeSec != 42 {
		t.Errorf("unexpected first service: %+v", services[0])
	}
}

func TestCallBackendError(t *testing.T) {
	_, socket := startTestBackend(t, func(req Request) (any, error) {
		return nil, errors.New("collector offline")
	})

	c := dialTest(t, socket, 2*time.Second)

	_, err := c.Overview(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *CommandError, got %T", err)
	}
	if cmdErr.Method != "get_overview" {
		t.Errorf("method = %q, want get_overview", cmdErr.Method)
	}
}

func TestCallTimeout(t *testing.T) {
	b, socket := startTestBackend(t, func(req Request) (any, error) {
		return map[string]string{}, nil
	})
	b.silence["get_overview"] = true

	c := dialTest(t, socket, 100*time.Millisecond)

	start := time.Now()
	_, err := c.Overview(context.Background())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout took too long: %v", elapsed)
	}
}

func TestEventDelivery(t *testing.T) {
	connCh := make(chan net.Conn, 1)
	dir := t.TempDir()
	socket := filepath.Join(dir, "opsdeckd.sock")
	ln, err := net.Listen("unix", socket)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		connCh <- conn
	}()

	c := dialTest(t, socket, time.Second)

	conn := <-connCh
	defer conn.Close()
	payload, _ := json.Marshal(map[string]string{"service": "indexer"})
	encoded, _ := json.Marshal(Event{Type: "service_crashed", Payload: payload})
	if _, err := conn.Write(append(encoded, '\n')); err != nil {
		t.Fatalf("write event: %v", err)
	}

	select {
	case ev := <-c.Events():
		if ev.Type != "service_crashed" {
			t.Errorf("event type = %q", ev.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}
