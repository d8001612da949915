package scenario

import (
	"fmt"

	"github.com/roach88/brokersim/internal/engine"
	"github.com/roach88/brokersim/internal/model"
)

// Index maps the names declared by a scenario to the ids the engine
// assigned.
type Index struct {
	Exchanges map[string]string
	Queues    map[string]string
	Consumers map[string]string
}

func newIndex() *Index {
	return &Index{
		Exchanges: make(map[string]string),
		Queues:    make(map[string]string),
		Consumers: make(map[string]string),
	}
}

// Apply resets e, marks s as the active demo and builds its topology through
// the engine's public operations.
//
// Creation order is exchanges, queues, bindings, consumers. A queue named as
// a dead-letter target is created before the queues that reference it, so
// that its id is known when they are created.
func Apply(e *engine.Engine, s *Scenario) (*Index, error) {
	e.Reset()
	e.SetActiveDemo(s.Name)
	idx := newIndex()

	for _, ex := range s.Exchanges {
		created, err := e.CreateExchange(ex.Name, model.ExchangeType(ex.Type), ex.Position)
		if err != nil {
			return nil, fmt.Errorf("exchange %q: %w", ex.Name, err)
		}
		idx.Exchanges[ex.Name] = created.ID
	}

	for _, q := range queueCreationOrder(s.Queues) {
		opts := model.QueueOptions{
			MaxLength:    q.MaxLength,
			MessageTTLMs: q.MessageTTLMs,
		}
		if q.DeadLetterQueue != "" {
			dlq, ok := idx.Queues[q.DeadLetterQueue]
			if !ok {
				return nil, fmt.Errorf("queue %q: dead-letter queue %q is not declared", q.Name, q.DeadLetterQueue)
			}
			opts.DeadLetterQueueID = dlq
		}
		created, err := e.CreateQueue(q.Name, q.Position, opts)
		if err != nil {
			return nil, fmt.Errorf("queue %q: %w", q.Name, err)
		}
		idx.Queues[q.Name] = created.ID
	}

	for i, b := range s.Bindings {
		if _, err := e.CreateBinding(idx.Exchanges[b.Exchange], idx.Queues[b.Queue], b.RoutingKey); err != nil {
			return nil, fmt.Errorf("binding %d (%s -> %s): %w", i, b.Exchange, b.Queue, err)
		}
	}

	for _, c := range s.Consumers {
		created, err := e.CreateConsumer(c.Name, idx.Queues[c.Queue], c.Position)
		if err != nil {
			return nil, fmt.Errorf("consumer %q: %w", c.Name, err)
		}
		idx.Consumers[c.Name] = created.ID
		if !c.IsActive() {
			if err := e.SetConsumerActive(created.ID, false); err != nil {
				return nil, fmt.Errorf("consumer %q: %w", c.Name, err)
			}
		}
	}

	return idx, nil
}

// queueCreationOrder returns queues so that every dead-letter target comes
// before the queues that reference it, otherwise keeping declaration order.
// References to undeclared queues and cycles are left for Apply to report.
func queueCreationOrder(queues []QueueSpec) []QueueSpec {
	byName := make(map[string]QueueSpec, len(queues))
	for _, q := range queues {
		byName[q.Name] = q
	}

	out := make([]QueueSpec, 0, len(queues))
	placed := make(map[string]bool, len(queues))
	visiting := make(map[string]bool)

	var visit func(q QueueSpec)
	visit = func(q QueueSpec) {
		if placed[q.Name] || visiting[q.Name] {
			return
		}
		visiting[q.Name] = true
		if target, ok := byName[q.DeadLetterQueue]; ok && target.Name != q.Name {
			visit(target)
		}
		visiting[q.Name] = false
		placed[q.Name] = true
		out = append(out, q)
	}

	for _, q := range queues {
		visit(q)
	}
	return out
}
