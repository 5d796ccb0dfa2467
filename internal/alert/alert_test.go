package alert

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jamescort/antidote-ng/internal/alert/smtp"
	"github.com/jamescort/antidote-ng/internal/config"
)

type fakeSyslog struct {
	infos, errs, crits []string
	closed             bool
}

func (f *fakeSyslog) Info(m string) error { f.infos = append(f.infos, m); return nil }
func (f *fakeSyslog) Err(m string) error  { f.errs = append(f.errs, m); return nil }
func (f *fakeSyslog) Crit(m string) error { f.crits = append(f.crits, m); return nil }
func (f *fakeSyslog) Close() error        { f.closed = true; return nil }

type fakeMailer struct {
	sent []smtp.Message
	err  error
}

func (f *fakeMailer) Send(msg smtp.Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

func newTestDispatcher(cfg config.Config) (*Dispatcher, *fakeSyslog, *fakeSyslog, *fakeMailer, *bytes.Buffer, *bytes.Buffer) {
	user := &fakeSyslog{}
	auth := &fakeSyslog{}
	mail := &fakeMailer{}
	stderr := &bytes.Buffer{}
	console := &bytes.Buffer{}
	d := newDispatcher(zap.NewNop(), cfg, stderr, console, user, auth, mail)
	return d, user, auth, mail, stderr, console
}

func TestFireNoticeOnlySyslog(t *testing.T) {
	d, user, auth, mail, stderr, console := newTestDispatcher(config.Defaults())
	d.Fire(Notice, "unrecognised ARP type")

	assert.Equal(t, []string{"unrecognised ARP type"}, user.infos)
	assert.Empty(t, auth.crits)
	assert.Empty(t, stderr.String())
	assert.Empty(t, console.String())
	assert.Empty(t, mail.sent)
}

func TestFireLowAddsStderr(t *testing.T) {
	d, user, _, _, stderr, console := newTestDispatcher(config.Defaults())
	d.Fire(Low, "low severity notice")

	assert.Equal(t, []string{"low severity notice"}, user.infos)
	assert.Contains(t, stderr.String(), "low severity notice")
	assert.Empty(t, console.String())
}

func TestFireMediumHitsAllLocalSinks(t *testing.T) {
	d, user, _, _, stderr, console := newTestDispatcher(config.Defaults())
	d.Fire(Medium, "no options file detected")

	assert.Equal(t, []string{"no options file detected"}, user.errs)
	assert.Contains(t, stderr.String(), "no options file detected")
	assert.Contains(t, console.String(), "no options file detected")
}

func TestFireHighestTriggersMail(t *testing.T) {
	d, _, auth, mail, stderr, console := newTestDispatcher(config.Defaults())
	d.Fire(Highest, "suspected poisoner impersonating 10.0.0.1")

	assert.Equal(t, []string{"suspected poisoner impersonating 10.0.0.1"}, auth.crits)
	assert.Contains(t, stderr.String(), "suspected poisoner")
	assert.Contains(t, console.String(), "suspected poisoner")
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "suspected poisoner impersonating 10.0.0.1", mail.sent[0].Body)
}

func TestFireHighestSuppressedWhenRecipientNO(t *testing.T) {
	cfg := config.Defaults()
	cfg.EmailRecipient = "NO"
	d, _, _, mail, _, _ := newTestDispatcher(cfg)

	d.Fire(Highest, "conflicting MAC details")
	assert.Empty(t, mail.sent)
}

func TestFireHighestMailFailureDoesNotPanic(t *testing.T) {
	d, _, _, mail, _, _ := newTestDispatcher(config.Defaults())
	mail.err = errors.New("connection refused")

	assert.NotPanics(t, func() {
		d.Fire(Highest, "a MAC address has changed")
	})
	require.Len(t, mail.sent, 1)
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "notice", Notice.String())
	assert.Equal(t, "low", Low.String())
	assert.Equal(t, "medium", Medium.String())
	assert.Equal(t, "highest", Highest.String())
}
