package scenario

import (
	"fmt"
	"strings"

	"github.com/roach88/brokersim/internal/model"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", FormatTraceLine(ev))
		}
	}

	return buf.String()
}

func assertQueueDepth(state model.Snapshot, a Assertion) error {
	for _, q := range state.Queues {
		if q.Name != a.Queue {
			continue
		}
		if len(q.Messages) != a.Count {
			return &AssertionError{
				Type:     AssertQueueDepth,
				Expected: fmt.Sprintf("queue %q holds %d messages", a.Queue, a.Count),
				Actual:   fmt.Sprintf("%d messages", len(q.Messages)),
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertQueueDepth,
		Expected: fmt.Sprintf("queue %q to exist", a.Queue),
		Actual:   "queue not found",
	}
}

func assertConsumerProcessed(state model.Snapshot, a Assertion) error {
	for _, c := range state.Consumers {
		if c.Name != a.Consumer {
			continue
		}
		if c.ProcessedMessages != int64(a.Count) {
			return &AssertionError{
				Type:     AssertConsumerProcessed,
				Expected: fmt.Sprintf("consumer %q processed %d messages", a.Consumer, a.Count),
				Actual:   fmt.Sprintf("%d processed", c.ProcessedMessages),
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertConsumerProcessed,
		Expected: fmt.Sprintf("consumer %q to exist", a.Consumer),
		Actual:   "consumer not found",
	}
}

// assertEventCount checks that the event type appears exactly Count times.
func assertEventCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if string(ev.Type) == a.Event {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Event),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertEventOrder checks that the first occurrences of the event types
// appear in the given order. Other events may appear in between.
func assertEventOrder(trace []TraceEvent, a Assertion) error {
	// Step 1: Find first position of each expected type (1-indexed)
	positions := make(map[string]int)
	for i, ev := range trace {
		if positions[string(ev.Type)] == 0 {
			positions[string(ev.Type)] = i + 1
		}
	}

	// Step 2: Verify all types found
	for _, typ := range a.Events {
		if positions[typ] == 0 {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("all events present: %v", a.Events),
				Actual:   fmt.Sprintf("missing event: %s", typ),
				Trace:    trace,
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(a.Events); i++ {
		prev, curr := a.Events[i-1], a.Events[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("events in order: %v", a.Events),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertQueueDepth:
			err = assertQueueDepth(result.State, a)
		case AssertConsumerProcessed:
			err = assertConsumerProcessed(result.State, a)
		case AssertEventCount:
			err = assertEventCount(result.Trace, a)
		case AssertEventOrder:
			err = assertEventOrder(result.Trace, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
