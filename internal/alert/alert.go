// Package alert implements the Alert Dispatcher: given a severity and a
// message, it fans out to the sinks spec.md §4.5 maps that severity to.
// Grounded on original_source/src/alert.c's notice/alert/bluealert/
// redalert/netalert functions, which is itself a direct wrapper around
// libc's syslog(3) — reproduced here with github.com/schahn/srslog (used
// for local/CEF syslog delivery in Brightgate-product's ap.logd/syslog.go)
// since the standard library's log/syslog is Unix-only and offers no
// facility control beyond what's baked into the priority constant.
package alert

import (
	"fmt"
	"io"
	"sync"

	"github.com/schahn/srslog"
	"go.uber.org/zap"

	"github.com/jamescort/antidote-ng/internal/alert/smtp"
	"github.com/jamescort/antidote-ng/internal/config"
)

// Severity is one of the four alert levels spec.md §4.5 defines.
type Severity int

const (
	Notice Severity = iota
	Low
	Medium
	Highest
)

func (s Severity) String() string {
	switch s {
	case Notice:
		return "notice"
	case Low:
		return "low"
	case Medium:
		return "medium"
	case Highest:
		return "highest"
	default:
		return "unknown"
	}
}

// mailer is the subset of *smtp.Client Fire depends on, so tests can
// substitute a fake network sink without opening a real socket.
type mailer interface {
	Send(smtp.Message) error
}

// syslogSink is the subset of *srslog.Writer Fire depends on, so tests can
// substitute a fake local sink without a live syslog daemon.
type syslogSink interface {
	Info(string) error
	Err(string) error
	Crit(string) error
	Close() error
}

// Dispatcher routes (severity, message) pairs to the local sinks and, for
// Highest only, the SMTP network sink. Fire serializes concurrent calls
// with a mutex; Close does not take that mutex.
type Dispatcher struct {
	log *zap.Logger

	userSyslog     syslogSink
	authprivSyslog syslogSink

	stderr  io.Writer
	console io.Writer

	mail mailer
	cfg  config.Config

	mu sync.Mutex
}

// New constructs a Dispatcher backed by real local syslog connections and
// a real SMTP client. stderr and console are the two textual sinks
// spec.md's table names separately (stderr is always the process's
// standard error; console is a second, distinguishable textual sink — see
// DESIGN.md for why the two are kept distinct rather than merged). syslog
// connections are established eagerly so that a later syslog outage
// surfaces immediately rather than silently during the first real alert.
func New(log *zap.Logger, cfg config.Config, stderr, console io.Writer) (*Dispatcher, error) {
	userWriter, err := srslog.New(srslog.LOG_INFO|srslog.LOG_USER, "antidote")
	if err != nil {
		return nil, fmt.Errorf("connect syslog (facility USER): %w", err)
	}
	authWriter, err := srslog.New(srslog.LOG_INFO|srslog.LOG_AUTHPRIV, "antidote")
	if err != nil {
		userWriter.Close()
		return nil, fmt.Errorf("connect syslog (facility AUTHPRIV): %w", err)
	}

	return newDispatcher(log, cfg, stderr, console, userWriter, authWriter, smtp.NewClient(cfg.EmailServer, cfg.EmailPort)), nil
}

func newDispatcher(log *zap.Logger, cfg config.Config, stderr, console io.Writer, userSyslog, authprivSyslog syslogSink, mail mailer) *Dispatcher {
	return &Dispatcher{
		log:            log,
		userSyslog:     userSyslog,
		authprivSyslog: authprivSyslog,
		stderr:         stderr,
		console:        console,
		mail:           mail,
		cfg:            cfg,
	}
}

// Close releases the syslog connections.
func (d *Dispatcher) Close() error {
	d.userSyslog.Close()
	d.authprivSyslog.Close()
	return nil
}

// Fire dispatches message at severity to every sink spec.md §4.5's table
// names for that level.
func (d *Dispatcher) Fire(severity Severity, message string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.log.Debug("alert fired", zap.String("severity", severity.String()), zap.String("message", message))

	switch severity {
	case Notice:
		d.userSyslog.Info(message)
	case Low:
		d.userSyslog.Info(message)
		fmt.Fprintln(d.stderr, message)
	case Medium:
		d.userSyslog.Err(message)
		fmt.Fprintln(d.stderr, message)
		fmt.Fprintln(d.console, message)
	case Highest:
		d.authprivSyslog.Crit(message)
		fmt.Fprintln(d.stderr, message)
		fmt.Fprintln(d.console, message)
		d.notifyMail(message)
	}
}

// notifyMail sends the Highest-severity network alert, matching
// original_source/src/alert.c's netalert: a literal "NO" recipient
// suppresses SMTP entirely, and every SMTP failure is logged locally
// rather than propagated.
func (d *Dispatcher) notifyMail(message string) {
	if d.cfg.EmailDisabled() {
		return
	}

	err := d.mail.Send(smtp.Message{
		Sender:    d.cfg.EmailSender,
		Recipient: d.cfg.EmailRecipient,
		Subject:   "antidote alert",
		Body:      message,
	})
	if err != nil {
		d.log.Error("network alert delivery failed", zap.Error(err))
	}
}
