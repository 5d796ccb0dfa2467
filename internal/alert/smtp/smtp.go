// Package smtp implements the minimal outbound mail client the Highest
// severity alert sink uses to notify an operator. It is a direct, raw
// socket port of original_source/src/alert.c's mailalert/netwait/netsend,
// not the stdlib net/smtp package: net/smtp.Client hides the per-step
// reply codes (220/250/354/221) the spec requires distinguishing between
// (ResolveMailServer, ConnectMailServer, ConnectionClosed, WrongReply),
// collapsing them all into a single opaque error.
package smtp

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jamescort/antidote-ng/internal/errs"
)

// DefaultTimeout bounds each read/write of the exchange. The original had
// no such bound (spec.md §9's acknowledged limitation); this resolves that
// open question in favor of a conservative default rather than a hang.
const DefaultTimeout = 10 * time.Second

// Message is the envelope and body of one notification mail.
type Message struct {
	Sender    string
	Recipient string
	Subject   string
	Body      string
}

// Client dials a mail server and executes the classic SMTP handshake
// described in spec.md §4.5: connect, HELO, MAIL FROM, RCPT TO, DATA,
// headers + body + ".", QUIT.
type Client struct {
	Server  string
	Port    int
	Timeout time.Duration
}

// NewClient constructs a Client with DefaultTimeout.
func NewClient(server string, port int) *Client {
	return &Client{Server: server, Port: port, Timeout: DefaultTimeout}
}

// Send performs the full exchange. Every failure is reported as an
// *errs.Error carrying the specific kind from spec.md §7's SMTP set; the
// caller is expected to log it locally and never propagate it further,
// matching original_source/src/alert.c's netalert.
func (c *Client) Send(msg Message) error {
	addr := net.JoinHostPort(c.Server, strconv.Itoa(c.Port))

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		if isResolveErr(err) {
			return errs.New(errs.ResolveMailServer, err)
		}
		return errs.New(errs.ConnectMailServer, err)
	}
	defer conn.Close()

	r := bufio.NewReader(conn)

	deadline := func() {
		conn.SetDeadline(time.Now().Add(timeout))
	}

	deadline()
	if err := expect(r, "220"); err != nil {
		return err
	}

	localHost, _ := net.LookupAddr("")
	helo := "localhost"
	if len(localHost) > 0 {
		helo = strings.TrimSuffix(localHost[0], ".")
	}

	if err := sendLine(conn, fmt.Sprintf("HELO %s", helo)); err != nil {
		return err
	}
	deadline()
	if err := expect(r, "250"); err != nil {
		return err
	}

	if err := sendLine(conn, fmt.Sprintf("MAIL FROM:<%s>", msg.Sender)); err != nil {
		return err
	}
	deadline()
	if err := expect(r, "250"); err != nil {
		return err
	}

	if err := sendLine(conn, fmt.Sprintf("RCPT TO:<%s>", msg.Recipient)); err != nil {
		return err
	}
	deadline()
	if err := expect(r, "250"); err != nil {
		return err
	}

	if err := sendLine(conn, "DATA"); err != nil {
		return err
	}
	deadline()
	if err := expect(r, "354"); err != nil {
		return err
	}

	now := time.Now().Format(time.RFC1123Z)
	headers := []string{
		"Date: " + now,
		"From: " + msg.Sender,
		"Subject: " + msg.Subject,
		"To: " + msg.Recipient,
		"",
	}
	for _, h := range headers {
		if err := sendLine(conn, h); err != nil {
			return err
		}
	}
	for _, line := range strings.Split(msg.Body, "\n") {
		if err := sendLine(conn, line); err != nil {
			return err
		}
	}
	if err := sendLine(conn, "."); err != nil {
		return err
	}
	deadline()
	if err := expect(r, "250"); err != nil {
		return err
	}

	if err := sendLine(conn, "QUIT"); err != nil {
		return err
	}
	deadline()
	if err := expect(r, "221"); err != nil {
		return err
	}

	return nil
}

// sendLine writes s terminated by CRLF, per spec.md §4.5.
func sendLine(conn net.Conn, s string) error {
	if _, err := conn.Write([]byte(s + "\r\n")); err != nil {
		return errs.New(errs.ConnectionClosed, err)
	}
	return nil
}

// expect reads one reply line and requires it to begin with code,
// mirroring original_source/src/alert.c's netwait: a zero-length read is
// ConnectionClosed, anything else that doesn't match is WrongReply.
func expect(r *bufio.Reader, code string) error {
	line, err := r.ReadString('\n')
	if err != nil {
		return errs.New(errs.ConnectionClosed, err)
	}
	if len(line) < len(code) || !strings.HasPrefix(line, code) {
		return errs.New(errs.WrongReply, fmt.Errorf("expected %s, got %q", code, strings.TrimSpace(line)))
	}
	return nil
}

func isResolveErr(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
