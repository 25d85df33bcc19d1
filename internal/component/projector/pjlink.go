package projector

import (
	"bufio"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"k8s.io/utils/clock"
)

const (
	// Projectors drop idle connections after 30s; reconnect sooner.
	idleTimeout = 20 * time.Second
	dialTimeout = 5 * time.Second
	ioTimeout   = 5 * time.Second
)

var (
	ErrUnavailable = errors.New("projector is not available")
	ErrAuth        = errors.New("projector authentication failed")
	ErrNoPassword  = errors.New("projector requires a password")
)

// pjlinkErrors are the class 1 error responses.
var pjlinkErrors = map[string]string{
	"ERR1": "undefined command",
	"ERR2": "out of parameter",
	"ERR3": "unavailable time",
	"ERR4": "projector failure",
}

// ResponseError is returned when the projector answers with an error code.
type ResponseError struct {
	Command string
	Code    string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("pjlink %s: %s (%s)", e.Command, pjlinkErrors[e.Code], e.Code)
}

// DialFunc opens a connection to the projector.
type DialFunc func(ctx context.Context) (net.Conn, error)

// Controller speaks PJLink class 1 over one lazily opened connection.
type Controller struct {
	dial     DialFunc
	password string
	clock    clock.Clock

	mu      sync.Mutex
	conn    net.Conn
	rd      *bufio.Reader
	expires time.Time
}

// NewController returns a controller for the projector at addr.
func NewController(addr, password string, c clock.Clock) *Controller {
	d := &net.Dialer{Timeout: dialTimeout}
	return newController(func(ctx context.Context) (net.Conn, error) {
		return d.DialContext(ctx, "tcp", addr)
	}, password, c)
}

func newController(dial DialFunc, password string, c clock.Clock) *Controller {
	return &Controller{dial: dial, password: password, clock: c}
}

// Get queries cmd.
func (p *Controller) Get(ctx context.Context, cmd string) (string, error) {
	return p.Set(ctx, cmd, "?", "")
}

// Set sends cmd with param and returns the result. A non-empty expectation
// must match the result.
func (p *Controller) Set(ctx context.Context, cmd, param, expectation string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConn(ctx); err != nil {
		return "", err
	}
	if err := p.send("", cmd, param); err != nil {
		p.reset()
		return "", err
	}

	gotCmd, result, err := p.response()
	if err != nil {
		p.reset()
		return "", err
	}
	if gotCmd != cmd {
		return "", fmt.Errorf("pjlink: unexpected command in response: %s", gotCmd)
	}
	if _, ok := pjlinkErrors[result]; ok {
		return "", &ResponseError{Command: cmd, Code: result}
	}
	if expectation != "" && result != expectation {
		return "", fmt.Errorf("pjlink %s: unexpected response %q", cmd, result)
	}
	return result, nil
}

// Fire sends cmd with param and drops the connection without waiting for the
// answer. Some projectors only reply once a power transition has finished.
func (p *Controller) Fire(ctx context.Context, cmd, param string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConn(ctx); err != nil {
		return err
	}
	err := p.send("", cmd, param)
	p.reset()
	return err
}

// Close drops the connection.
func (p *Controller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

func (p *Controller) ensureConn(ctx context.Context) error {
	if p.conn != nil && p.clock.Now().Before(p.expires) {
		return nil
	}
	p.reset()

	conn, err := p.dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	p.conn = conn
	p.rd = bufio.NewReader(conn)

	if err := p.authenticate(); err != nil {
		p.reset()
		return err
	}
	return nil
}

func (p *Controller) reset() {
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn = nil
	p.rd = nil
}

// authenticate reads the greeting, "PJLINK 0\r" or "PJLINK 1 <salt>\r".
func (p *Controller) authenticate() error {
	p.deadline()
	greeting, err := p.rd.ReadString('\r')
	if err != nil {
		return fmt.Errorf("pjlink: read greeting: %w", err)
	}
	greeting = strings.TrimSuffix(greeting, "\r")

	rest, ok := strings.CutPrefix(greeting, "PJLINK ")
	if !ok || rest == "" {
		return fmt.Errorf("pjlink: invalid header %q", greeting)
	}

	switch rest[0] {
	case '0':
	case '1':
		if p.password == "" {
			return ErrNoPassword
		}
		salt := strings.TrimSpace(rest[1:])
		sum := md5.Sum([]byte(salt + p.password))
		if err := p.send(hex.EncodeToString(sum[:]), "POWR", "?"); err != nil {
			return err
		}
		p.deadline()
		line, err := p.rd.ReadString('\r')
		if err != nil {
			return fmt.Errorf("pjlink: read auth response: %w", err)
		}
		if strings.TrimSuffix(line, "\r") == "PJLINK ERRA" {
			return ErrAuth
		}
	default:
		return fmt.Errorf("pjlink: invalid security option %q", rest[:1])
	}

	p.expires = p.clock.Now().Add(idleTimeout)
	return nil
}

func (p *Controller) send(prefix, cmd, param string) error {
	if len(cmd) > 4 || strings.ToUpper(cmd) != cmd || len(param) > 128 {
		return fmt.Errorf("pjlink: malformed command %q %q", cmd, param)
	}
	p.deadline()
	_, err := io.WriteString(p.conn, prefix+"%1"+cmd+" "+param+"\r")
	return err
}

// response reads "%1CMD=result\r".
func (p *Controller) response() (cmd, result string, err error) {
	p.deadline()
	line, err := p.rd.ReadString('\r')
	if err != nil {
		return "", "", fmt.Errorf("pjlink: read response: %w", err)
	}
	line = strings.TrimSuffix(line, "\r")

	if len(line) < 7 || line[0] != '%' {
		return "", "", fmt.Errorf("pjlink: invalid response %q", line)
	}
	if line[1] != '1' {
		return "", "", fmt.Errorf("pjlink: invalid version %q", line[1:2])
	}
	if line[6] != '=' {
		return "", "", fmt.Errorf("pjlink: invalid separator %q", line[6:7])
	}

	p.expires = p.clock.Now().Add(idleTimeout)
	return strings.ToUpper(line[2:6]), line[7:], nil
}

func (p *Controller) deadline() {
	_ = p.conn.SetDeadline(time.Now().Add(ioTimeout))
}
