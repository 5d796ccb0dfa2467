// Package errs enumerates the distinct failure kinds the core surfaces to
// callers, mirroring the kind-based error handling of the original program
// rather than Go's usual sentinel-error style, since the alert dispatcher and
// exit-code wiring both need to switch on *kind*, not just detect failure.
package errs

// Kind identifies a class of failure the core can surface.
type Kind int

const (
	OK Kind = iota
	InterfaceLookup
	InterfaceOpen
	NetworkLookup
	FilterCompile
	FilterInstall
	OutOfMemory
	BadUsage
	MacChanged
	NoOptsFile
	InvalidOptions
	ResolveMailServer
	ConnectMailServer
	ConnectionClosed
	WrongReply
	EndOfFile
)

var descriptions = map[Kind]string{
	OK:                "executed successfully",
	InterfaceLookup:   "cannot attach to interface",
	InterfaceOpen:     "cannot open interface for live capture",
	NetworkLookup:     "cannot look up network address for interface",
	FilterCompile:     "cannot compile capture filter",
	FilterInstall:     "cannot install capture filter",
	OutOfMemory:       "cannot allocate memory",
	BadUsage:          "function called incorrectly",
	MacChanged:        "a MAC address has changed",
	NoOptsFile:        "cannot open configuration file",
	InvalidOptions:    "syntax error in configuration",
	ResolveMailServer: "cannot resolve mail server hostname",
	ConnectMailServer: "cannot connect to mail server",
	ConnectionClosed:  "connection unexpectedly closed",
	WrongReply:        "server returned an unexpected reply",
	EndOfFile:         "unexpected end of input",
}

// String renders a human-readable description of k, analogous to the
// original's decodeerror.
func (k Kind) String() string {
	if d, ok := descriptions[k]; ok {
		return d
	}
	return "unrecognised error code"
}

// Error wraps a Kind with contextual detail, implementing the error
// interface so callers can still use errors.Is/As against sentinel wrapping
// while code that needs the kind for exit-code or alert-routing purposes can
// type-assert to *Error.
type Error struct {
	Kind Kind
	Err  error
}

func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExitCode maps a Kind to a process exit code. OK always exits zero; the
// remaining kinds use their own ordinal so operators can distinguish causes
// from the shell, matching the original's numbered ERR_* defines.
func (k Kind) ExitCode() int {
	return int(k)
}
