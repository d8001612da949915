// Package render formats simulation state and events for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/brokersim/internal/model"
)

// timeLayout shows wall-clock time with millisecond precision.
const timeLayout = "15:04:05.000"

// Renderer formats output for one destination. Colors are used only when
// the destination is a terminal that supports them.
type Renderer struct {
	st styles
}

// New creates a Renderer for w.
func New(w io.Writer) *Renderer {
	return &Renderer{st: newStyles(lipgloss.NewRenderer(w))}
}

// Header renders a boxed title.
func (r *Renderer) Header(title string) string {
	return r.st.header.Render(title)
}

// Topology renders exchanges with their bindings, queues with their policy
// and depth, and consumers with their counters.
func (r *Renderer) Topology(s model.Snapshot) string {
	queueNames := make(map[string]string, len(s.Queues))
	for _, q := range s.Queues {
		queueNames[q.ID] = q.Name
	}

	var sections []string

	var b strings.Builder
	b.WriteString(r.st.section.Render(fmt.Sprintf("Exchanges (%d)", len(s.Exchanges))))
	for _, ex := range s.Exchanges {
		fmt.Fprintf(&b, "\n  %s %s", r.st.name.Render(ex.Name), r.st.kind.Render("["+string(ex.Type)+"]"))
		for _, bd := range s.Bindings {
			if bd.ExchangeID != ex.ID {
				continue
			}
			target, ok := queueNames[bd.QueueID]
			if !ok {
				target = r.st.muted.Render("(missing " + bd.QueueID + ")")
			}
			fmt.Fprintf(&b, "\n    -> %s %s", target, r.st.routingKey.Render(quoteKey(bd.RoutingKey)))
		}
	}
	sections = append(sections, b.String())

	b.Reset()
	b.WriteString(r.st.section.Render(fmt.Sprintf("Queues (%d)", len(s.Queues))))
	for _, q := range s.Queues {
		fmt.Fprintf(&b, "\n  %s %s", r.st.name.Render(q.Name), r.queuePolicy(q, queueNames))
	}
	sections = append(sections, b.String())

	b.Reset()
	b.WriteString(r.st.section.Render(fmt.Sprintf("Consumers (%d)", len(s.Consumers))))
	for _, c := range s.Consumers {
		state := r.st.ok.Render("active")
		if !c.IsActive {
			state = r.st.bad.Render("inactive")
		}
		fmt.Fprintf(&b, "\n  %s on %s %s %s", r.st.name.Render(c.Name), queueNames[c.QueueID], state,
			r.st.muted.Render(fmt.Sprintf("processed=%d", c.ProcessedMessages)))
	}
	sections = append(sections, b.String())

	return strings.Join(sections, "\n\n")
}

func (r *Renderer) queuePolicy(q model.Queue, queueNames map[string]string) string {
	depth := fmt.Sprintf("%d", len(q.Messages))
	if q.HasCapacityLimit() {
		depth = fmt.Sprintf("%d/%d", len(q.Messages), q.MaxLength)
	}
	parts := []string{"depth=" + depth}
	if q.HasTTL() {
		parts = append(parts, fmt.Sprintf("ttl=%dms", q.MessageTTLMs))
	}
	if q.DeadLetterQueueID != "" {
		dlq, ok := queueNames[q.DeadLetterQueueID]
		if !ok {
			dlq = q.DeadLetterQueueID
		}
		parts = append(parts, "dlq="+dlq)
	}
	return r.st.muted.Render(strings.Join(parts, " "))
}

// Events renders events one per line in the order given.
func (r *Renderer) Events(events []model.Event) string {
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		label := r.st.label
		if isFailure(ev.Type) {
			label = r.st.bad
		}
		lines = append(lines, fmt.Sprintf("%s %s %s %s",
			r.st.muted.Render(fmt.Sprintf("#%-5d", ev.Seq)),
			r.st.muted.Render(ev.Timestamp.UTC().Format(timeLayout)),
			label.Render(EventLabel(ev.Type)),
			r.st.text.Render(ev.Description),
		))
	}
	return strings.Join(lines, "\n")
}

// Summary renders a one-line count of every collection.
func (r *Renderer) Summary(s model.Snapshot) string {
	queued := 0
	for _, q := range s.Queues {
		queued += len(q.Messages)
	}
	return r.st.muted.Render(fmt.Sprintf(
		"%d exchanges, %d queues, %d consumers, %d bindings, %d messages queued, %d flows active",
		len(s.Exchanges), len(s.Queues), len(s.Consumers), len(s.Bindings), queued, len(s.ActiveFlows),
	))
}

func quoteKey(key string) string {
	return fmt.Sprintf("%q", key)
}
