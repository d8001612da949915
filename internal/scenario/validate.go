package scenario

import (
	"fmt"
	"strings"

	"github.com/roach88/brokersim/internal/model"
)

// Validation error codes (S100-S199)
const (
	// General (S100-S109)
	ErrMissingField = "S100" // required field is empty
	ErrSchema       = "S101" // document does not match the scenario schema

	// Topology (S110-S119)
	ErrDuplicateName       = "S110" // duplicate exchange/queue/consumer name
	ErrInvalidExchangeType = "S111" // unsupported exchange type
	ErrUnknownExchange     = "S112" // reference to an undeclared exchange
	ErrUnknownQueue        = "S113" // reference to an undeclared queue
	ErrDeadLetterCycle     = "S114" // dead-letter references form a cycle
	ErrNegativeLimit       = "S115" // negative max_length or message_ttl_ms

	// Schedule and run (S120-S129)
	ErrNegativeOffset     = "S120" // publication at_ms below zero
	ErrInvalidProbability = "S121" // reject_probability outside [0, 1]

	// Assertions (S130-S139)
	ErrInvalidAssertion = "S130" // unknown type or missing operand
	ErrUnknownEventType = "S131" // event type that the engine never emits
)

// ValidationError describes one problem in a scenario.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a decoded scenario for consistency.
// Returns all errors found (does not fail-fast).
func Validate(s *Scenario) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code})
	}

	if strings.TrimSpace(s.Name) == "" {
		add("name", ErrMissingField, "name is required")
	}
	if strings.TrimSpace(s.Description) == "" {
		add("description", ErrMissingField, "description is required")
	}

	exchanges := make(map[string]bool)
	for i, ex := range s.Exchanges {
		field := fmt.Sprintf("exchanges[%d]", i)
		if strings.TrimSpace(ex.Name) == "" {
			add(field+".name", ErrMissingField, "name is required")
		} else if exchanges[ex.Name] {
			add(field+".name", ErrDuplicateName, "duplicate exchange name: %q", ex.Name)
		}
		exchanges[ex.Name] = true
		if !model.ExchangeType(ex.Type).Valid() {
			add(field+".type", ErrInvalidExchangeType, "unsupported exchange type %q", ex.Type)
		}
	}

	queues := make(map[string]bool)
	for i, q := range s.Queues {
		field := fmt.Sprintf("queues[%d]", i)
		if strings.TrimSpace(q.Name) == "" {
			add(field+".name", ErrMissingField, "name is required")
		} else if queues[q.Name] {
			add(field+".name", ErrDuplicateName, "duplicate queue name: %q", q.Name)
		}
		queues[q.Name] = true
		if q.MaxLength < 0 {
			add(field+".max_length", ErrNegativeLimit, "max_length must be non-negative")
		}
		if q.MessageTTLMs < 0 {
			add(field+".message_ttl_ms", ErrNegativeLimit, "message_ttl_ms must be non-negative")
		}
	}
	for i, q := range s.Queues {
		if q.DeadLetterQueue != "" && !queues[q.DeadLetterQueue] {
			add(fmt.Sprintf("queues[%d].dead_letter_queue", i), ErrUnknownQueue,
				"dead-letter queue %q is not declared", q.DeadLetterQueue)
		}
	}
	if name, ok := deadLetterCycle(s.Queues); ok {
		add("queues", ErrDeadLetterCycle, "dead-letter references of %q form a cycle", name)
	}

	for i, b := range s.Bindings {
		field := fmt.Sprintf("bindings[%d]", i)
		if !exchanges[b.Exchange] {
			add(field+".exchange", ErrUnknownExchange, "exchange %q is not declared", b.Exchange)
		}
		if !queues[b.Queue] {
			add(field+".queue", ErrUnknownQueue, "queue %q is not declared", b.Queue)
		}
	}

	consumers := make(map[string]bool)
	for i, c := range s.Consumers {
		field := fmt.Sprintf("consumers[%d]", i)
		if strings.TrimSpace(c.Name) == "" {
			add(field+".name", ErrMissingField, "name is required")
		} else if consumers[c.Name] {
			add(field+".name", ErrDuplicateName, "duplicate consumer name: %q", c.Name)
		}
		consumers[c.Name] = true
		if !queues[c.Queue] {
			add(field+".queue", ErrUnknownQueue, "queue %q is not declared", c.Queue)
		}
	}

	for i, p := range s.Publications {
		field := fmt.Sprintf("publications[%d]", i)
		if p.AtMs < 0 {
			add(field+".at_ms", ErrNegativeOffset, "at_ms must be non-negative")
		}
		if !exchanges[p.Exchange] {
			add(field+".exchange", ErrUnknownExchange, "exchange %q is not declared", p.Exchange)
		}
	}

	if s.Run != nil && s.Run.RejectProbability != nil {
		if p := *s.Run.RejectProbability; p < 0 || p > 1 {
			add("run.reject_probability", ErrInvalidProbability, "reject_probability must be within [0, 1], got %v", p)
		}
	}

	for i, a := range s.Assertions {
		errs = append(errs, validateAssertion(i, a, queues, consumers)...)
	}

	return errs
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion, queues, consumers map[string]bool) []ValidationError {
	field := fmt.Sprintf("assertions[%d]", index)
	invalid := func(format string, args ...any) []ValidationError {
		return []ValidationError{{Field: field, Message: fmt.Sprintf(format, args...), Code: ErrInvalidAssertion}}
	}

	if a.Count < 0 {
		return invalid("count must be non-negative")
	}

	switch a.Type {
	case "":
		return invalid("type is required")
	case AssertQueueDepth:
		if a.Queue == "" {
			return invalid("queue is required for %s", a.Type)
		}
		if !queues[a.Queue] {
			return []ValidationError{{Field: field + ".queue", Message: fmt.Sprintf("queue %q is not declared", a.Queue), Code: ErrUnknownQueue}}
		}
	case AssertConsumerProcessed:
		if a.Consumer == "" {
			return invalid("consumer is required for %s", a.Type)
		}
		if !consumers[a.Consumer] {
			return invalid("consumer %q is not declared", a.Consumer)
		}
	case AssertEventCount:
		if a.Event == "" {
			return invalid("event is required for %s", a.Type)
		}
		if !model.EventType(a.Event).Valid() {
			return []ValidationError{{Field: field + ".event", Message: fmt.Sprintf("unknown event type %q", a.Event), Code: ErrUnknownEventType}}
		}
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return invalid("events list is required for %s", a.Type)
		}
		for _, ev := range a.Events {
			if !model.EventType(ev).Valid() {
				return []ValidationError{{Field: field + ".events", Message: fmt.Sprintf("unknown event type %q", ev), Code: ErrUnknownEventType}}
			}
		}
	default:
		return invalid("unknown assertion type %q", a.Type)
	}
	return nil
}

// deadLetterCycle reports the first queue whose dead-letter chain returns
// to a queue already on the chain. A queue naming itself counts.
func deadLetterCycle(queues []QueueSpec) (string, bool) {
	next := make(map[string]string, len(queues))
	for _, q := range queues {
		if q.DeadLetterQueue != "" {
			next[q.Name] = q.DeadLetterQueue
		}
	}
	for _, q := range queues {
		seen := map[string]bool{q.Name: true}
		for cur, ok := next[q.Name]; ok; cur, ok = next[cur] {
			if seen[cur] {
				return q.Name, true
			}
			seen[cur] = true
		}
	}
	return "", false
}
