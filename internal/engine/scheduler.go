package engine

import (
	"fmt"
	"time"

	"github.com/roach88/brokersim/internal/model"
)

// Step runs one scheduler tick:
//
//  1. Flow sweep: ended flows leave the active set
//  2. TTL sweep: expired messages leave every queue with a TTL
//  3. Single delivery: at most one message is handed to a consumer
//
// Subscribers are notified once, and only if the tick changed anything.
func (e *Engine) Step() {
	now := e.now()

	changed := e.sweepFlows(now.UnixMilli())
	if e.expireMessages(now) {
		changed = true
	}
	if e.deliverOne() {
		changed = true
	}

	if changed {
		e.notify()
	}
}

type expiry struct {
	queueIdx int
	expired  []model.Message
}

// expireMessages removes messages whose age reached their queue's TTL.
//
// Expiry is decided for all queues against the state at the start of the
// sweep, then applied. A message dead-lettered here is not re-examined by
// its dead-letter queue's TTL until the next tick. This differs from a
// single in-place pass in queue order, where a copy moved into a DLQ that
// sorts later could expire again in the same tick while one moved into an
// earlier DLQ would not; deciding first makes the outcome independent of
// queue order.
func (e *Engine) expireMessages(now time.Time) bool {
	var pending []expiry
	for qi := range e.state.Queues {
		q := &e.state.Queues[qi]
		if !q.HasTTL() || len(q.Messages) == 0 {
			continue
		}
		ttl := time.Duration(q.MessageTTLMs) * time.Millisecond

		var expired []model.Message
		alive := make([]model.Message, 0, len(q.Messages))
		for _, m := range q.Messages {
			if now.Sub(m.Timestamp) >= ttl {
				expired = append(expired, m)
			} else {
				alive = append(alive, m)
			}
		}
		if len(expired) == 0 {
			continue
		}
		q.Messages = alive
		pending = append(pending, expiry{queueIdx: qi, expired: expired})
	}

	for _, p := range pending {
		q := e.state.Queues[p.queueIdx]
		di := e.deadLetterIndex(p.queueIdx)
		for _, m := range p.expired {
			if di >= 0 {
				dlq := &e.state.Queues[di]
				dlq.Messages = append(dlq.Messages, m.WithStatus(model.StatusDLQ))
				e.emit(model.EventMessageDLQ,
					fmt.Sprintf("Message expired in %q and moved to DLQ %q", q.Name, dlq.Name),
					details("message_id", m.ID, "queue_id", q.ID, "dead_letter_queue_id", dlq.ID))
			}
			e.emit(model.EventMessageRejected,
				fmt.Sprintf("Message expired (TTL) in queue %q", q.Name),
				details("message_id", m.ID, "queue_id", q.ID))
		}
		e.logger.Debug("messages expired", "queue", q.Name, "count", len(p.expired))
	}

	return len(pending) > 0
}

// deliverOne hands the head of the first eligible queue to its least-loaded
// active consumer. Returns false when no queue has both a message and an
// active consumer.
func (e *Engine) deliverOne() bool {
	for qi := range e.state.Queues {
		q := &e.state.Queues[qi]
		if len(q.Messages) == 0 {
			continue
		}
		ci := e.leastLoadedConsumer(q.ID)
		if ci < 0 {
			continue
		}

		msg := q.Messages[0]
		q.Messages = q.Messages[1:]
		c := &e.state.Consumers[ci]
		e.addFlow(msg.ID, c.ID, model.ComponentConsumer, e.flowDurations.Consumer)

		if e.random.Float64() < e.rejectProbability {
			e.reject(qi, c, msg)
			return true
		}

		c.ProcessedMessages++
		e.emit(model.EventMessageConsumed,
			fmt.Sprintf("Message consumed by %s", c.Name),
			details("message_id", msg.ID, "consumer_id", c.ID, "queue_id", q.ID, "content", msg.Content))
		return true
	}
	return false
}

// reject dead-letters msg when the queue's DLQ resolves and discards it
// otherwise. A rejection event naming the consumer is always appended.
func (e *Engine) reject(qi int, c *model.Consumer, msg model.Message) {
	q := e.state.Queues[qi]
	if di := e.deadLetterIndex(qi); di >= 0 {
		dlq := &e.state.Queues[di]
		dlq.Messages = append(dlq.Messages, msg.WithStatus(model.StatusDLQ))
		e.emit(model.EventMessageDLQ,
			fmt.Sprintf("Message moved to Dead Letter Queue %q", dlq.Name),
			details("message_id", msg.ID, "queue_id", q.ID, "dead_letter_queue_id", dlq.ID))
		e.addFlow(msg.ID, dlq.ID, model.ComponentQueue, e.flowDurations.DeadLetter)
	}
	e.emit(model.EventMessageRejected,
		fmt.Sprintf("Message rejected by %s", c.Name),
		details("message_id", msg.ID, "consumer_id", c.ID, "queue_id", q.ID))
}

// leastLoadedConsumer returns the index of the active consumer of queueID
// with the fewest processed messages, first found on ties, or -1.
func (e *Engine) leastLoadedConsumer(queueID string) int {
	best := -1
	for i, c := range e.state.Consumers {
		if c.QueueID != queueID || !c.IsActive {
			continue
		}
		if best < 0 || c.ProcessedMessages < e.state.Consumers[best].ProcessedMessages {
			best = i
		}
	}
	return best
}
