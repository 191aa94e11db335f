package app

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/pokeachieve/internal/services/tracker/retroarch"
)

// fakeEmulator answers GET_STATUS and READ_CORE_MEMORY from mutable state.
type fakeEmulator struct {
	conn net.PacketConn

	mu     sync.Mutex
	status string
	memory map[uint32]byte
	silent bool
}

func startFakeEmulator(t *testing.T) *fakeEmulator {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	f := &fakeEmulator{conn: conn, status: "GET_STATUS CONTENTLESS", memory: map[uint32]byte{}}
	t.Cleanup(func() { _ = conn.Close() })
	go f.serve()
	return f
}

func (f *fakeEmulator) serve() {
	buf := make([]byte, 4096)
	for {
		n, addr, err := f.conn.ReadFrom(buf)
		if err != nil {
			return
		}
		reply, ok := f.answer(strings.TrimSpace(string(buf[:n])))
		if ok {
			_, _ = f.conn.WriteTo([]byte(reply), addr)
		}
	}
}

func (f *fakeEmulator) answer(command string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.silent {
		return "", false
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", false
	}
	switch fields[0] {
	case retroarch.CommandGetStatus:
		return f.status, true
	case retroarch.CommandReadCoreMemory:
		if len(fields) != 3 {
			return "", false
		}
		addr, err := strconv.ParseUint(fields[1], 16, 32)
		if err != nil {
			return "", false
		}
		count, err := strconv.Atoi(fields[2])
		if err != nil {
			return "", false
		}
		parts := []string{retroarch.CommandReadCoreMemory, fields[1]}
		for i := 0; i < count; i++ {
			parts = append(parts, fmt.Sprintf("%02x", f.memory[uint32(addr)+uint32(i)]))
		}
		return strings.Join(parts, " "), true
	default:
		return "", false
	}
}

func (f *fakeEmulator) SetStatus(status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func (f *fakeEmulator) Poke(address uint32, value byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memory[address] = value
}

func (f *fakeEmulator) SetSilent(silent bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.silent = silent
}

func (f *fakeEmulator) ClientConfig(timeout time.Duration) retroarch.Config {
	addr := f.conn.LocalAddr().(*net.UDPAddr)
	return retroarch.Config{Host: addr.IP.String(), Port: addr.Port, Timeout: timeout}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
