// Command callsim replays a call script offline on a virtual clock and prints
// the transcript, reasoning and diagnostics in the order they fire.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/capitalize-ai/call-monitor/internal/eventloop"
	"github.com/capitalize-ai/call-monitor/internal/fixture"
	"github.com/capitalize-ai/call-monitor/internal/model"
	"github.com/capitalize-ai/call-monitor/internal/service"
	"github.com/capitalize-ai/call-monitor/internal/waveform"
)

type styles struct {
	header    lipgloss.Style
	clock     lipgloss.Style
	assistant lipgloss.Style
	caller    lipgloss.Style
	reasoning lipgloss.Style
	muted     lipgloss.Style
	severity  map[model.Severity]lipgloss.Style
	summary   lipgloss.Style
	wave      lipgloss.Style
}

func newStyles() styles {
	blue := lipgloss.Color("#60a5fa")
	green := lipgloss.Color("#34d399")
	purple := lipgloss.Color("#c084fc")
	muted := lipgloss.Color("#9ca3af")

	return styles{
		header: lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue),
		clock:     lipgloss.NewStyle().Foreground(muted),
		assistant: lipgloss.NewStyle().Bold(true).Foreground(blue),
		caller:    lipgloss.NewStyle().Bold(true).Foreground(green),
		reasoning: lipgloss.NewStyle().Foreground(purple),
		muted:     lipgloss.NewStyle().Foreground(muted),
		severity: map[model.Severity]lipgloss.Style{
			model.SeverityNormal:   lipgloss.NewStyle().Foreground(green),
			model.SeverityMild:     lipgloss.NewStyle().Foreground(lipgloss.Color("#facc15")),
			model.SeverityModerate: lipgloss.NewStyle().Foreground(lipgloss.Color("#fb923c")),
			model.SeveritySevere:   lipgloss.NewStyle().Foreground(lipgloss.Color("#f87171")),
		},
		summary: lipgloss.NewStyle().
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(muted),
		wave: lipgloss.NewStyle().Foreground(green),
	}
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "callsim: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("callsim", flag.ContinueOnError)
	fs.SetOutput(out)
	scriptName := fs.String("script", fixture.DefaultScript, "script to replay")
	dir := fs.String("dir", "", "directory with additional *.yaml scripts")
	extra := fs.Duration("tail", 2*time.Second, "time to keep the call live after the last event")
	list := fs.Bool("list", false, "list available scripts and exit")
	wave := fs.Bool("wave", true, "print a waveform sparkline per conversation turn")
	if err := fs.Parse(args); err != nil {
		return err
	}

	registry, err := fixture.Builtin()
	if err != nil {
		return err
	}
	if *dir != "" {
		if err := registry.LoadDir(*dir); err != nil {
			return err
		}
	}

	st := newStyles()

	if *list {
		for _, s := range registry.Summaries() {
			fmt.Fprintf(out, "%-20s %6s  %s\n", s.Name,
				model.FormatDuration(int(math.Ceil(float64(s.DurationMs)/1000))), st.muted.Render(s.Description))
		}
		return nil
	}

	script, err := registry.Lookup(*scriptName)
	if err != nil {
		return err
	}

	clock := eventloop.NewVirtual(time.Now())
	var session *service.Session
	sink := service.SinkFunc(func(u model.Update) {
		if u.Type != model.UpdateEntry {
			return
		}
		printEntry(out, st, u)
		if *wave && u.Log == model.LogConversation {
			// Sample the waveform a moment into the turn.
			clock.AfterFunc(500*time.Millisecond, func() {
				fmt.Fprintf(out, "           %s\n", st.wave.Render(sparkline(session.Synthesizer().Samples(), 48, session.Synthesizer().Scale())))
			})
		}
	})

	session = service.NewSession(clock, script, service.SessionOptions{
		Waveform: waveform.Config{Width: 96, Height: 100},
		Sink:     sink,
	})
	defer session.Close()

	fmt.Fprintln(out, st.header.Render(fmt.Sprintf("%s  %s  %s",
		script.Caller.PatientName, script.Caller.From, st.muted.Render(script.Caller.PatientID))))

	session.Open()
	session.StartCall()
	clock.Advance(script.Duration() + *extra)
	snap := session.Snapshot()
	session.EndCall()

	fmt.Fprintln(out, st.summary.Render(fmt.Sprintf("call %s  duration %s  turns %d  reasoning %d  findings %d",
		snap.Session.ID[:8], snap.Session.Duration(),
		len(snap.Conversation), len(snap.Reasoning), len(snap.Diagnostics))))
	return nil
}

func printEntry(out io.Writer, st styles, u model.Update) {
	var offset int64
	var line string

	switch e := u.Entry.(type) {
	case model.LogEntry[model.ConversationTurn]:
		offset = e.OffsetMs
		speaker := st.caller
		if e.Payload.Speaker == model.SpeakerAssistant {
			speaker = st.assistant
		}
		line = speaker.Render(string(e.Payload.Speaker)+":") + " " + e.Payload.Text
	case model.LogEntry[model.ReasoningStep]:
		offset = e.OffsetMs
		line = st.reasoning.Render(fmt.Sprintf("%s %s", e.Payload.Status.Symbol(), e.Payload.Label)) +
			st.muted.Render(fmt.Sprintf("  %s (%.0f%%)", e.Payload.Detail, e.Payload.Confidence*100))
	case model.LogEntry[model.DiagnosticFinding]:
		offset = e.OffsetMs
		sev, ok := st.severity[e.Payload.Severity]
		if !ok {
			sev = st.muted
		}
		line = sev.Render(fmt.Sprintf("◆ %s", e.Payload.Label)) +
			st.muted.Render(fmt.Sprintf("  %s (%.0f%%)", e.Payload.Detail, e.Payload.Confidence*100))
	default:
		return
	}

	stamp := fmt.Sprintf("%s.%03d", model.FormatDuration(int(offset/1000)), offset%1000)
	fmt.Fprintf(out, "%s  %s\n", st.clock.Render(stamp), line)
}

var bars = []rune("▁▂▃▄▅▆▇█")

// sparkline renders the newest width samples as block characters.
func sparkline(samples []float64, width int, scale float64) string {
	if len(samples) > width {
		samples = samples[len(samples)-width:]
	}
	var b strings.Builder
	for _, v := range samples {
		level := waveform.Level(v, scale)
		i := int(level * float64(len(bars)-1))
		b.WriteRune(bars[i])
	}
	return b.String()
}
