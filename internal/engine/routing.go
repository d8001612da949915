package engine

import (
	"fmt"

	"github.com/roach88/brokersim/internal/model"
)

// Publish sends a message to an exchange and routes copies to its bound
// queues.
//
// Each destination is handled independently: a full queue redirects its copy
// to its dead-letter queue, or drops it when none resolves, without
// affecting the other destinations. Copies share the message id.
func (e *Engine) Publish(exchangeID, content, routingKey string) (model.Message, error) {
	xi := e.exchangeIndex(exchangeID)
	if xi < 0 {
		return model.Message{}, NewNotFoundError(kindExchange, exchangeID)
	}
	ex := e.state.Exchanges[xi]

	msg := model.Message{
		ID:         e.ids.Generate(),
		Content:    content,
		RoutingKey: routingKey,
		Timestamp:  e.now(),
		ExchangeID: exchangeID,
		Status:     model.StatusPublished,
	}
	e.state.Messages = append(e.state.Messages, msg)
	e.emit(model.EventMessagePublished,
		fmt.Sprintf("Message published to %q with routing key %q", ex.Name, routingKey),
		details("message_id", msg.ID, "exchange_id", exchangeID, "routing_key", routingKey, "content", content))
	e.addFlow(msg.ID, exchangeID, model.ComponentExchange, e.flowDurations.Exchange)

	destinations := e.destinations(ex, routingKey)
	for _, qid := range destinations {
		e.deliver(msg, qid)
	}

	e.logger.Debug("message published",
		"message_id", msg.ID,
		"exchange", ex.Name,
		"routing_key", routingKey,
		"destinations", len(destinations),
	)
	e.notify()
	return msg, nil
}

// destinations returns the ids of existing queues bound to ex whose binding
// accepts routingKey, in binding order. A queue bound more than once
// receives a single copy.
func (e *Engine) destinations(ex model.Exchange, routingKey string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, b := range e.state.Bindings {
		if b.ExchangeID != ex.ID || seen[b.QueueID] {
			continue
		}
		if !bindingAccepts(ex.Type, b.RoutingKey, routingKey) {
			continue
		}
		if e.queueIndex(b.QueueID) < 0 {
			continue
		}
		seen[b.QueueID] = true
		out = append(out, b.QueueID)
	}
	return out
}

func bindingAccepts(typ model.ExchangeType, bindingKey, routingKey string) bool {
	switch typ {
	case model.ExchangeDirect:
		return bindingKey == routingKey
	case model.ExchangeFanout:
		return true
	case model.ExchangeTopic:
		return MatchTopic(bindingKey, routingKey)
	}
	return false
}

// deliver appends a routed copy of msg to the queue, or dead-letters it when
// the queue is at capacity. Capacity is checked against the length before
// this delivery.
func (e *Engine) deliver(msg model.Message, queueID string) {
	qi := e.queueIndex(queueID)
	q := &e.state.Queues[qi]

	if q.HasCapacityLimit() && len(q.Messages) >= q.MaxLength {
		di := e.deadLetterIndex(qi)
		if di < 0 {
			e.logger.Debug("message dropped: queue full", "message_id", msg.ID, "queue", q.Name)
			return
		}
		dlq := &e.state.Queues[di]
		dlq.Messages = append(dlq.Messages, msg.WithStatus(model.StatusDLQ))
		e.emit(model.EventMessageDLQ,
			fmt.Sprintf("Queue %q at max length; message routed to DLQ %q", q.Name, dlq.Name),
			details("message_id", msg.ID, "queue_id", q.ID, "dead_letter_queue_id", dlq.ID))
		e.addFlow(msg.ID, dlq.ID, model.ComponentQueue, e.flowDurations.DeadLetter)
		return
	}

	q.Messages = append(q.Messages, msg.WithStatus(model.StatusRouted))
	e.emit(model.EventMessageRouted,
		fmt.Sprintf("Message routed to queue %q", q.Name),
		details("message_id", msg.ID, "queue_id", q.ID, "content", msg.Content))
	e.addFlow(msg.ID, q.ID, model.ComponentQueue, e.flowDurations.Queue)
}

// deadLetterIndex resolves the dead-letter queue of the queue at qi.
// Returns -1 when none is configured, the target no longer exists, or the
// queue names itself.
func (e *Engine) deadLetterIndex(qi int) int {
	q := e.state.Queues[qi]
	if q.DeadLetterQueueID == "" || q.DeadLetterQueueID == q.ID {
		return -1
	}
	return e.queueIndex(q.DeadLetterQueueID)
}
