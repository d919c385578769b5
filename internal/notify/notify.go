// Package notify reports progress and outcomes to the person running an export.
package notify

import (
	"io"
	"os"

	"github.com/pterm/pterm"
)

// Severity of a message.
type Severity int

const (
	None Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return ""
}

// Completion tags mark the final message of a command.
const (
	TagExportDone    = "exportDone"
	TagRecommendDone = "recommendDone"
)

// Message is one notification. Tag is empty for progress messages.
type Message struct {
	Text     string
	Severity Severity
	Tag      string
}

// Notifier is a one-way, fire-and-forget channel to the user.
type Notifier interface {
	Notify(Message)
}

// Terminal prints messages with pterm prefixes.
type Terminal struct {
	info    pterm.PrefixPrinter
	success pterm.PrefixPrinter
	warning pterm.PrefixPrinter
	err     pterm.PrefixPrinter
}

// NewTerminal writes to w, or stderr when w is nil, so stdout stays free for
// exported data.
func NewTerminal(w io.Writer) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	return &Terminal{
		info:    *pterm.Info.WithWriter(w),
		success: *pterm.Success.WithWriter(w),
		warning: *pterm.Warning.WithWriter(w),
		err:     *pterm.Error.WithWriter(w),
	}
}

// Notify implements Notifier.
func (t *Terminal) Notify(m Message) {
	switch {
	case m.Severity == Error:
		t.err.Println(m.Text)
	case m.Severity == Warning:
		t.warning.Println(m.Text)
	case m.Tag != "":
		t.success.Println(m.Text)
	default:
		t.info.Println(m.Text)
	}
}

// Recorder keeps every message, for tests and for callers that report later.
type Recorder struct {
	Messages []Message
}

func (r *Recorder) Notify(m Message) { r.Messages = append(r.Messages, m) }
