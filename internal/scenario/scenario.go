package scenario

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/brokersim/internal/engine"
	"github.com/roach88/brokersim/internal/model"
)

// Scenario describes a broker topology, a publication schedule and the
// expected outcome of running it.
type Scenario struct {
	// Name uniquely identifies this scenario. It doubles as the demo marker
	// when the scenario is applied to an engine.
	Name string `yaml:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description"`

	Exchanges []ExchangeSpec `yaml:"exchanges"`
	Queues    []QueueSpec    `yaml:"queues"`
	Bindings  []BindingSpec  `yaml:"bindings,omitempty"`
	Consumers []ConsumerSpec `yaml:"consumers,omitempty"`

	// Publications are canned messages, fired at_ms after playback starts.
	Publications []Publication `yaml:"publications,omitempty"`

	// Run controls deterministic execution. Optional.
	Run *RunSpec `yaml:"run,omitempty"`

	// Assertions validate the final state and the trace.
	// Supported types: queue_depth, consumer_processed, event_count, event_order
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ExchangeSpec declares an exchange.
type ExchangeSpec struct {
	Name     string         `yaml:"name"`
	Type     string         `yaml:"type"`
	Position model.Position `yaml:"position,omitempty"`
}

// QueueSpec declares a queue. The dead-letter queue is referenced by name
// and must be declared in the same scenario.
type QueueSpec struct {
	Name            string         `yaml:"name"`
	Position        model.Position `yaml:"position,omitempty"`
	DeadLetterQueue string         `yaml:"dead_letter_queue,omitempty"`
	MaxLength       int            `yaml:"max_length,omitempty"`
	MessageTTLMs    int64          `yaml:"message_ttl_ms,omitempty"`
}

// BindingSpec binds a queue to an exchange by name.
type BindingSpec struct {
	Exchange   string `yaml:"exchange"`
	Queue      string `yaml:"queue"`
	RoutingKey string `yaml:"routing_key"`
}

// ConsumerSpec declares a consumer. Active defaults to true.
type ConsumerSpec struct {
	Name     string         `yaml:"name"`
	Queue    string         `yaml:"queue"`
	Position model.Position `yaml:"position,omitempty"`
	Active   *bool          `yaml:"active,omitempty"`
}

// IsActive reports whether the consumer starts active.
func (c ConsumerSpec) IsActive() bool {
	return c.Active == nil || *c.Active
}

// Publication is a canned message.
type Publication struct {
	AtMs       int64  `yaml:"at_ms"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	Content    string `yaml:"content"`
}

// Delay returns the offset of the publication from the start of playback.
func (p Publication) Delay() time.Duration {
	return time.Duration(p.AtMs) * time.Millisecond
}

// RunSpec controls a deterministic scenario run.
type RunSpec struct {
	// Ticks is the number of scheduler ticks to run. Default: 10.
	Ticks int `yaml:"ticks,omitempty"`

	// IntervalMs is the simulated time between ticks. Default: 1000.
	IntervalMs int64 `yaml:"interval_ms,omitempty"`

	// RejectProbability overrides the engine default when set.
	RejectProbability *float64 `yaml:"reject_probability,omitempty"`

	// Seed seeds the random source. Default: 1.
	Seed uint64 `yaml:"seed,omitempty"`

	// Rejections scripts the outcome of successive deliveries (true means
	// rejected) and replaces the seeded source. The script repeats once
	// exhausted.
	Rejections []bool `yaml:"rejections,omitempty"`
}

// Run defaults.
const (
	DefaultTicks      = 10
	DefaultIntervalMs = 1000
	DefaultSeed       = 1
)

// TickCount returns the configured number of ticks or the default.
func (r *RunSpec) TickCount() int {
	if r == nil || r.Ticks <= 0 {
		return DefaultTicks
	}
	return r.Ticks
}

// Interval returns the configured tick interval or the default.
func (r *RunSpec) Interval() time.Duration {
	if r == nil || r.IntervalMs <= 0 {
		return DefaultIntervalMs * time.Millisecond
	}
	return time.Duration(r.IntervalMs) * time.Millisecond
}

// Probability returns the configured reject probability or the engine
// default.
func (r *RunSpec) Probability() float64 {
	if r == nil || r.RejectProbability == nil {
		return engine.DefaultRejectProbability
	}
	return *r.RejectProbability
}

// SeedValue returns the configured seed or the default.
func (r *RunSpec) SeedValue() uint64 {
	if r == nil || r.Seed == 0 {
		return DefaultSeed
	}
	return r.Seed
}

// Assertion validates the outcome of a run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "queue_depth": queue holds exactly Count messages
	// - "consumer_processed": consumer processed exactly Count messages
	// - "event_count": event type appears exactly Count times in the trace
	// - "event_order": event types appear in the given order in the trace
	Type string `yaml:"type"`

	Queue    string   `yaml:"queue,omitempty"`
	Consumer string   `yaml:"consumer,omitempty"`
	Event    string   `yaml:"event,omitempty"`
	Events   []string `yaml:"events,omitempty"`
	Count    int      `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertQueueDepth        = "queue_depth"
	AssertConsumerProcessed = "consumer_processed"
	AssertEventCount        = "event_count"
	AssertEventOrder        = "event_order"
)

// Load reads, schema-checks and parses a scenario YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return Parse(path, data)
}

// Parse decodes a scenario document. name labels schema errors.
//
// The document is checked against the embedded CUE schema, decoded with
// strict field validation and then checked for consistency.
func Parse(name string, data []byte) (*Scenario, error) {
	if err := ValidateSchema(name, data); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	s, err := decode(data)
	if err != nil {
		return nil, err
	}

	if errs := Validate(s); len(errs) > 0 {
		return nil, fmt.Errorf("invalid scenario: %w", errs[0])
	}
	return s, nil
}

// Check runs every validation stage and collects all problems instead of
// stopping at the first one. The scenario is nil when the document failed
// the schema or could not be decoded.
func Check(name string, data []byte) (*Scenario, []ValidationError) {
	if errs := CheckSchema(name, data); len(errs) > 0 {
		return nil, errs
	}
	s, err := decode(data)
	if err != nil {
		return nil, []ValidationError{{Field: "document", Message: err.Error(), Code: ErrSchema}}
	}
	return s, Validate(s)
}

func decode(data []byte) (*Scenario, error) {
	// Reject unknown fields (catches typos like "assertion:" vs "assertions:")
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &s, nil
}
