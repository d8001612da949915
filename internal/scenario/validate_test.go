package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func codes(errs []ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func validScenario() *Scenario {
	return &Scenario{
		Name:        "valid",
		Description: "valid scenario",
		Exchanges:   []ExchangeSpec{{Name: "ex", Type: "topic"}},
		Queues: []QueueSpec{
			{Name: "main", DeadLetterQueue: "dead"},
			{Name: "dead"},
		},
		Bindings:     []BindingSpec{{Exchange: "ex", Queue: "main", RoutingKey: "a.#"}},
		Consumers:    []ConsumerSpec{{Name: "c", Queue: "main"}},
		Publications: []Publication{{AtMs: 0, Exchange: "ex", RoutingKey: "a.b", Content: "x"}},
		Assertions: []Assertion{
			{Type: AssertQueueDepth, Queue: "dead"},
			{Type: AssertConsumerProcessed, Consumer: "c", Count: 1},
			{Type: AssertEventCount, Event: "message_routed", Count: 1},
			{Type: AssertEventOrder, Events: []string{"message_published", "message_routed"}},
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	assert.Empty(t, Validate(validScenario()))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Scenario)
		code   string
	}{
		{"missing name", func(s *Scenario) { s.Name = " " }, ErrMissingField},
		{"duplicate exchange", func(s *Scenario) {
			s.Exchanges = append(s.Exchanges, ExchangeSpec{Name: "ex", Type: "direct"})
		}, ErrDuplicateName},
		{"bad exchange type", func(s *Scenario) { s.Exchanges[0].Type = "headers" }, ErrInvalidExchangeType},
		{"duplicate queue", func(s *Scenario) { s.Queues = append(s.Queues, QueueSpec{Name: "dead"}) }, ErrDuplicateName},
		{"undeclared dead-letter queue", func(s *Scenario) { s.Queues[0].DeadLetterQueue = "nowhere" }, ErrUnknownQueue},
		{"self dead-letter", func(s *Scenario) { s.Queues[1].DeadLetterQueue = "dead" }, ErrDeadLetterCycle},
		{"dead-letter cycle", func(s *Scenario) { s.Queues[1].DeadLetterQueue = "main" }, ErrDeadLetterCycle},
		{"negative ttl", func(s *Scenario) { s.Queues[0].MessageTTLMs = -5 }, ErrNegativeLimit},
		{"binding to unknown exchange", func(s *Scenario) { s.Bindings[0].Exchange = "nope" }, ErrUnknownExchange},
		{"consumer on unknown queue", func(s *Scenario) { s.Consumers[0].Queue = "nope" }, ErrUnknownQueue},
		{"duplicate consumer", func(s *Scenario) {
			s.Consumers = append(s.Consumers, ConsumerSpec{Name: "c", Queue: "dead"})
		}, ErrDuplicateName},
		{"negative offset", func(s *Scenario) { s.Publications[0].AtMs = -1 }, ErrNegativeOffset},
		{"publication to unknown exchange", func(s *Scenario) { s.Publications[0].Exchange = "nope" }, ErrUnknownExchange},
		{"probability out of range", func(s *Scenario) {
			p := 2.0
			s.Run = &RunSpec{RejectProbability: &p}
		}, ErrInvalidProbability},
		{"unknown assertion type", func(s *Scenario) { s.Assertions[0].Type = "final_state" }, ErrInvalidAssertion},
		{"queue_depth without queue", func(s *Scenario) { s.Assertions[0].Queue = "" }, ErrInvalidAssertion},
		{"queue_depth on unknown queue", func(s *Scenario) { s.Assertions[0].Queue = "nope" }, ErrUnknownQueue},
		{"unknown consumer", func(s *Scenario) { s.Assertions[1].Consumer = "nope" }, ErrInvalidAssertion},
		{"unknown event", func(s *Scenario) { s.Assertions[2].Event = "message_lost" }, ErrUnknownEventType},
		{"unknown event in order", func(s *Scenario) { s.Assertions[3].Events = []string{"nope"} }, ErrUnknownEventType},
		{"negative count", func(s *Scenario) { s.Assertions[2].Count = -1 }, ErrInvalidAssertion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validScenario()
			tt.mutate(s)
			assert.Contains(t, codes(Validate(s)), tt.code)
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	s := validScenario()
	s.Name = ""
	s.Description = ""
	s.Bindings[0].Queue = "nope"

	errs := Validate(s)
	assert.Len(t, errs, 3)
}

func TestValidationError_Error(t *testing.T) {
	e := ValidationError{Field: "queues[0].name", Message: "name is required", Code: ErrMissingField}
	assert.Equal(t, "[S100] queues[0].name: name is required", e.Error())

	e.Line = 4
	assert.Equal(t, "[S100] line 4: queues[0].name: name is required", e.Error())
}
