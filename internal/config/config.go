// Package config loads the Antidote configuration record: built-in
// defaults overlaid with a plain-text config file. The grammar is a Go
// port of original_source/src/checkopts.c's eatuseless/getnextname/
// getnextvalue/setoption state machine, re-expressed with a bufio.Scanner
// instead of a byte-at-a-time fgetc loop.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jamescort/antidote-ng/internal/errs"
)

const (
	DefaultPath = "/etc/antidote.cfg"

	defaultEmailSender    = "antidote@localhost"
	defaultEmailRecipient = "root@localhost"
	defaultEmailServer    = "localhost"
	defaultEmailPort      = 25
	defaultPromiscuous    = true
	defaultCheckMACs      = true
	defaultPoisonThresh   = 10
	defaultBadNetThresh   = -10
	defaultTimeout        = 1500 * time.Second
	defaultCaptureFilter  = "arp"
)

// Config is the immutable, fully resolved configuration the rest of the
// program consumes. Nothing mutates it after Load returns.
type Config struct {
	EthernetDevice string

	EmailSender    string
	EmailRecipient string
	EmailServer    string
	EmailPort      int

	Promiscuous     bool
	CheckMACChanges bool
	PoisonThreshold int
	BadNetThreshold int
	Timeout         time.Duration

	// CaptureFilter is an enrichment over spec.md's fixed "arp" BPF
	// program, grounded on original_source/src/antidote.h's
	// optiondetails.bpf_program field. Defaulted identically to the
	// spec's hard-coded behavior; overridable only for operators who
	// need a narrower expression.
	CaptureFilter string
}

// Defaults returns the built-in configuration, equivalent to
// checkopts.c's setdefaults().
func Defaults() Config {
	return Config{
		EmailSender:     defaultEmailSender,
		EmailRecipient:  defaultEmailRecipient,
		EmailServer:     defaultEmailServer,
		EmailPort:       defaultEmailPort,
		Promiscuous:     defaultPromiscuous,
		CheckMACChanges: defaultCheckMACs,
		PoisonThreshold: defaultPoisonThresh,
		BadNetThreshold: defaultBadNetThresh,
		Timeout:         defaultTimeout,
		CaptureFilter:   defaultCaptureFilter,
	}
}

// EmailDisabled reports whether the configured recipient suppresses SMTP
// alerts entirely, per spec.md §8's "emailrecipient = NO" boundary case.
func (c Config) EmailDisabled() bool {
	return c.EmailRecipient == "NO"
}

// Load resolves the configuration from path, falling back to Defaults()
// if path cannot be opened. A missing file is non-fatal: it is reported
// via the returned errs.Kind (errs.NoOptsFile) so the caller can raise the
// Medium alert checkopts.c's loadoptions raises, but Load still returns a
// usable Config.
func Load(path string) (Config, errs.Kind, error) {
	cfg := Defaults()

	f, err := os.Open(path)
	if err != nil {
		return cfg, errs.NoOptsFile, fmt.Errorf("open config file %q: %w", path, err)
	}
	defer f.Close()

	if err := parse(f, &cfg); err != nil {
		return cfg, errs.InvalidOptions, err
	}
	return cfg, errs.OK, nil
}

// parse scans f for key/value pairs and applies each to cfg via setOption.
// Lines are tokenized on '=' or whitespace; '#' begins a comment running
// to end of line; blank lines and bare whitespace are skipped.
func parse(f *os.File, cfg *Config) error {
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if hash := strings.IndexByte(line, '#'); hash >= 0 {
			line = line[:hash]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, err := splitKeyValue(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if key == "" {
			continue
		}
		if err := setOption(cfg, strings.ToLower(key), value); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// splitKeyValue separates a trimmed, comment-stripped line into its key
// and value, accepting either "key=value" or "key value" as getnextname/
// getnextvalue did, and tolerating stray whitespace around '='.
func splitKeyValue(line string) (key, value string, err error) {
	if eq := strings.IndexByte(line, '='); eq >= 0 {
		key = strings.TrimSpace(line[:eq])
		value = strings.TrimSpace(line[eq+1:])
		return key, value, nil
	}
	fields := strings.Fields(line)
	switch len(fields) {
	case 0:
		return "", "", nil
	case 1:
		return "", "", fmt.Errorf("key %q has no value", fields[0])
	default:
		return fields[0], strings.Join(fields[1:], " "), nil
	}
}

// setOption applies one recognised key to cfg, mirroring checkopts.c's
// setoption. Unknown keys are ignored per spec.md §6.
func setOption(cfg *Config, key, value string) error {
	switch key {
	case "ethernetdevice":
		cfg.EthernetDevice = value
	case "emailsender":
		cfg.EmailSender = value
	case "emailrecipient":
		cfg.EmailRecipient = value
	case "emailserver":
		cfg.EmailServer = value
	case "emailserverport":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("emailserverport: %w", err)
		}
		cfg.EmailPort = port
	case "promiscuous":
		b, err := parseYesNo(value)
		if err != nil {
			return fmt.Errorf("promiscuous: %w", err)
		}
		cfg.Promiscuous = b
	case "checkmacchanges":
		b, err := parseYesNo(value)
		if err != nil {
			return fmt.Errorf("checkmacchanges: %w", err)
		}
		cfg.CheckMACChanges = b
	case "poisonthreshold":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("poisonthreshold: %w", err)
		}
		cfg.PoisonThreshold = n
	case "badnetthreshold":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("badnetthreshold: %w", err)
		}
		cfg.BadNetThreshold = n
	case "timeout":
		// The config-file value is in minutes; the in-memory default is
		// already expressed in raw seconds (checkopts.c: setdefaults sets
		// options.timeout = TIMEOUT directly, but setoption sets
		// options.timeout = 60 * atol(optval)).
		minutes, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = time.Duration(minutes) * 60 * time.Second
	case "capturefilter":
		cfg.CaptureFilter = value
	}
	return nil
}

func parseYesNo(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, fmt.Errorf("expected yes/no, got %q", value)
	}
}
