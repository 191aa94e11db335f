package retroarch

import (
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeEmulator answers commands on a loopback UDP socket. reply returning
// false drops the command without answering.
type fakeEmulator struct {
	conn  net.PacketConn
	reply func(command string) (string, bool)
	// delay, when set, holds back individual replies without blocking others
	delay func(command string) time.Duration

	mu       sync.Mutex
	commands []string
}

func startFakeEmulator(t *testing.T, reply func(command string) (string, bool)) *fakeEmulator {
	t.Helper()
	return startDelayedEmulator(t, reply, nil)
}

func startDelayedEmulator(t *testing.T, reply func(command string) (string, bool), delay func(command string) time.Duration) *fakeEmulator {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	f := &fakeEmulator{conn: conn, reply: reply, delay: delay}
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
		command := strings.TrimSuffix(string(buf[:n]), "\n")
		f.mu.Lock()
		f.commands = append(f.commands, command)
		f.mu.Unlock()
		out, ok := f.reply(command)
		if !ok {
			continue
		}
		var wait time.Duration
		if f.delay != nil {
			wait = f.delay(command)
		}
		if wait <= 0 {
			_, _ = f.conn.WriteTo([]byte(out), addr)
			continue
		}
		time.AfterFunc(wait, func() { _, _ = f.conn.WriteTo([]byte(out), addr) })
	}
}

func (f *fakeEmulator) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func (f *fakeEmulator) Config(timeout time.Duration) Config {
	addr := f.conn.LocalAddr().(*net.UDPAddr)
	return Config{Host: addr.IP.String(), Port: addr.Port, Timeout: timeout}
}

// memoryReplies answers READ_CORE_MEMORY from a byte map; unknown addresses
// read as zero.
func memoryReplies(memory map[uint32]byte) func(string) (string, bool) {
	return func(command string) (string, bool) {
		fields := strings.Fields(command)
		if len(fields) != 3 || fields[0] != CommandReadCoreMemory {
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
		parts := []string{CommandReadCoreMemory, fields[1]}
		for i := 0; i < count; i++ {
			parts = append(parts, strconv.FormatUint(uint64(memory[uint32(addr)+uint32(i)]), 16))
		}
		return strings.Join(parts, " "), true
	}
}

func connectClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	client := NewClient(cfg)
	if err := client.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(client.Disconnect)
	return client
}
