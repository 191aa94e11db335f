// Package retroarch speaks the RetroArch network command protocol: newline
// terminated ASCII commands over UDP, one reply datagram per command.
//
// Every call is a single attempt. Transport failures, timeouts and malformed
// replies are logged and reported as "no response"; they never cross the
// package boundary as errors. Retry policy belongs to the caller.
package retroarch

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/louisbranch/pokeachieve/internal/platform/errors"
	"github.com/louisbranch/pokeachieve/internal/platform/timeouts"
)

const (
	// DefaultHost is the address RetroArch binds its command interface to.
	DefaultHost = "127.0.0.1"
	// DefaultPort is RetroArch's default network_cmd_port.
	DefaultPort = 55355

	maxDatagram = 4096

	// drainWindow bounds the wait for each queued datagram after a timeout.
	drainWindow = 5 * time.Millisecond
)

// Config controls where the client sends commands and how long it waits.
type Config struct {
	Host    string
	Port    int
	Timeout time.Duration
}

func (c Config) normalized() Config {
	if strings.TrimSpace(c.Host) == "" {
		c.Host = DefaultHost
	}
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	if c.Timeout <= 0 {
		c.Timeout = timeouts.Command
	}
	return c
}

// Client sends commands to one RetroArch instance. Commands are expected to
// come from a single goroutine; Connect and Disconnect may be called from
// anywhere.
type Client struct {
	addr    string
	timeout time.Duration
	tracer  trace.Tracer

	mu   sync.Mutex
	conn net.Conn

	// consecutive transport failures since the last reply
	failures atomic.Int64
	// set when a wait timed out and its reply may still arrive
	stale atomic.Bool

	lastProtocolErr string
}

// NewClient returns a disconnected client.
func NewClient(cfg Config) *Client {
	cfg = cfg.normalized()
	return &Client{
		addr:    net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		timeout: cfg.Timeout,
		tracer:  otel.Tracer("github.com/louisbranch/pokeachieve/internal/services/tracker/retroarch"),
	}
}

// Addr returns the host:port commands are sent to.
func (c *Client) Addr() string {
	return c.addr
}

// Timeout returns the per-command reply timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Connect opens the datagram socket. It is a no-op when already connected.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}
	conn, err := net.Dial("udp", c.addr)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeTransport, fmt.Sprintf("dial %s", c.addr), err)
	}
	c.conn = conn
	c.failures.Store(0)
	c.stale.Store(false)
	log.Printf("retroarch client bound to %s", c.addr)
	return nil
}

// Disconnect closes the socket. It is a no-op when already disconnected.
// A command blocked on a reply returns "no response".
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		log.Printf("close retroarch socket: %v", err)
	}
}

// Connected reports whether the socket is open. UDP has no handshake, so an
// open socket says nothing about whether RetroArch is listening; use
// ConsecutiveFailures for that.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// ConsecutiveFailures returns the number of commands in a row that got no
// reply at all.
func (c *Client) ConsecutiveFailures() int {
	return int(c.failures.Load())
}

// SendCommand transmits command and waits for one reply datagram, bounded
// by the client timeout and ctx. ok is false on any failure.
func (c *Client) SendCommand(ctx context.Context, command string) (reply string, ok bool) {
	return c.exchange(ctx, command, nil)
}

// exchange sends command and returns the first reply accepted by match, or
// any reply when match is nil. Replies that match rejects belong to earlier
// commands whose wait already ran out; they are discarded and the wait goes
// on, so one late datagram cannot shift every later reply by one.
func (c *Client) exchange(ctx context.Context, command string, match func(string) bool) (string, bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	verb, _, _ := strings.Cut(command, " ")
	ctx, span := c.tracer.Start(ctx, "retroarch.command", trace.WithAttributes(
		attribute.String("retroarch.verb", verb),
	))
	defer span.End()

	reply, discarded, err := c.roundTrip(ctx, command, match)
	if discarded > 0 {
		span.SetAttributes(attribute.Int("retroarch.stale_replies", discarded))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no response")
		c.transportFailed(command, err)
		return "", false
	}
	c.failures.Store(0)
	return reply, true
}

func (c *Client) roundTrip(ctx context.Context, command string, match func(string) bool) (string, int, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return "", 0, apperrors.New(apperrors.CodeTransport, "not connected")
	}
	if err := ctx.Err(); err != nil {
		return "", 0, apperrors.Wrap(apperrors.CodeTransport, "command cancelled", err)
	}

	buf := make([]byte, maxDatagram)
	discarded := 0
	if c.stale.Swap(false) {
		discarded += drain(conn, buf)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return "", discarded, apperrors.Wrap(apperrors.CodeTransport, "set deadline", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if _, err := conn.Write([]byte(command + "\n")); err != nil {
		return "", discarded, apperrors.Wrap(apperrors.CodeTransport, "send command", err)
	}
	for {
		n, err := conn.Read(buf)
		if err != nil {
			// the reply may still be in flight
			c.stale.Store(true)
			return "", discarded, apperrors.Wrap(apperrors.CodeTransport, "receive reply", err)
		}
		reply := strings.TrimSpace(string(buf[:n]))
		if match == nil || match(reply) {
			return reply, discarded, nil
		}
		discarded++
	}
}

// drain discards datagrams already queued on conn, waiting at most
// drainWindow for each.
func drain(conn net.Conn, buf []byte) int {
	n := 0
	for {
		if err := conn.SetReadDeadline(time.Now().Add(drainWindow)); err != nil {
			return n
		}
		if _, err := conn.Read(buf); err != nil {
			return n
		}
		n++
	}
}

// replyTo accepts replies that echo verb as their first token.
func replyTo(verb string) func(string) bool {
	return func(reply string) bool {
		first, _, _ := strings.Cut(reply, " ")
		return first == verb
	}
}

// readReplyFor accepts READ_CORE_MEMORY replies echoing address.
func readReplyFor(address uint32) func(string) bool {
	return func(reply string) bool {
		fields := strings.Fields(reply)
		if len(fields) < 2 || fields[0] != CommandReadCoreMemory {
			return false
		}
		echoed, err := parseHex(fields[1], 32)
		return err == nil && uint32(echoed) == address
	}
}

// transportFailed logs the first failure of a run only; a dead emulator
// would otherwise log every read of every tick.
func (c *Client) transportFailed(command string, err error) {
	if c.failures.Add(1) == 1 {
		log.Printf("retroarch command %q failed: %v", command, err)
	}
}

func (c *Client) protocolFailed(err error) {
	msg := err.Error()
	if msg == c.lastProtocolErr {
		return
	}
	c.lastProtocolErr = msg
	log.Printf("retroarch reply rejected: %v", err)
}

// ReadMemory reads count bytes starting at address. A reply with the wrong
// prefix, a different address, fewer bytes than requested or a token that is
// not a hex byte yields ok == false; partial values are never returned.
func (c *Client) ReadMemory(ctx context.Context, address uint32, count int) ([]byte, bool) {
	if count <= 0 {
		return nil, false
	}
	reply, ok := c.exchange(ctx, FormatReadMemory(address, count), readReplyFor(address))
	if !ok {
		return nil, false
	}
	values, err := ParseReadMemory(reply, address, count)
	if err != nil {
		c.protocolFailed(err)
		return nil, false
	}
	return values, true
}

// ReadByte reads the single byte at address.
func (c *Client) ReadByte(ctx context.Context, address uint32) (byte, bool) {
	values, ok := c.ReadMemory(ctx, address, 1)
	if !ok {
		return 0, false
	}
	return values[0], true
}

// GetStatus asks for the emulator status. A missing or malformed reply
// yields a status whose State is StateDisconnected.
func (c *Client) GetStatus(ctx context.Context) Status {
	reply, ok := c.exchange(ctx, CommandGetStatus, replyTo(CommandGetStatus))
	if !ok {
		return Status{State: StateDisconnected}
	}
	status, err := ParseStatus(reply)
	if err != nil {
		c.protocolFailed(err)
		return Status{Raw: reply, State: StateDisconnected}
	}
	return status
}

// CurrentTitle returns the title of the content that is playing or paused.
func (c *Client) CurrentTitle(ctx context.Context) (string, bool) {
	status := c.GetStatus(ctx)
	if !status.HasContent() {
		return "", false
	}
	return status.Title, true
}
