package engine

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/brokersim/internal/model"
)

const (
	kindExchange = "exchange"
	kindQueue    = "queue"
	kindConsumer = "consumer"
)

func (e *Engine) exchangeIndex(id string) int {
	return slices.IndexFunc(e.state.Exchanges, func(x model.Exchange) bool { return x.ID == id })
}

func (e *Engine) queueIndex(id string) int {
	return slices.IndexFunc(e.state.Queues, func(q model.Queue) bool { return q.ID == id })
}

func (e *Engine) consumerIndex(id string) int {
	return slices.IndexFunc(e.state.Consumers, func(c model.Consumer) bool { return c.ID == id })
}

func validName(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return NewInvalidArgumentError("%s name must not be empty", kind)
	}
	return nil
}

// conflict appends an error event for a duplicate name and returns the
// matching SimError.
func (e *Engine) conflict(kind, name string, d map[string]string) error {
	e.emitError(fmt.Sprintf("%s name %q already exists", title(kind), name), d)
	e.notify()
	return NewNameConflictError(kind, name)
}

func title(kind string) string {
	return strings.ToUpper(kind[:1]) + kind[1:]
}

func formatPosition(p model.Position) (string, string) {
	return strconv.FormatFloat(p.X, 'f', -1, 64), strconv.FormatFloat(p.Y, 'f', -1, 64)
}

// CreateExchange adds an exchange. The type is fixed for its lifetime.
func (e *Engine) CreateExchange(name string, typ model.ExchangeType, pos model.Position) (model.Exchange, error) {
	if err := validName(kindExchange, name); err != nil {
		return model.Exchange{}, err
	}
	if !typ.Valid() {
		return model.Exchange{}, NewInvalidArgumentError("unsupported exchange type %q", typ)
	}
	if _, ok := e.ExchangeByName(name); ok {
		return model.Exchange{}, e.conflict(kindExchange, name, details("name", name))
	}

	ex := model.Exchange{
		ID:         e.ids.Generate(),
		Name:       name,
		Type:       typ,
		Position:   pos,
		BindingIDs: []string{},
	}
	e.state.Exchanges = append(e.state.Exchanges, ex)
	e.emit(model.EventExchangeCreated,
		fmt.Sprintf("Exchange %q (%s) created", name, typ),
		details("exchange_id", ex.ID, "name", name, "type", string(typ)))
	e.notify()

	return cloneExchange(ex), nil
}

// CreateQueue adds a queue. Non-positive MaxLength and MessageTTLMs mean
// unset. The dead-letter reference is not checked; routing ignores one that
// does not resolve.
func (e *Engine) CreateQueue(name string, pos model.Position, opts model.QueueOptions) (model.Queue, error) {
	if err := validName(kindQueue, name); err != nil {
		return model.Queue{}, err
	}
	if _, ok := e.QueueByName(name); ok {
		return model.Queue{}, e.conflict(kindQueue, name, details("name", name))
	}

	opts.MaxLength = max(opts.MaxLength, 0)
	opts.MessageTTLMs = max(opts.MessageTTLMs, 0)

	q := model.Queue{
		ID:           e.ids.Generate(),
		Name:         name,
		Position:     pos,
		Messages:     []model.Message{},
		QueueOptions: opts,
		ConsumerIDs:  []string{},
	}
	e.state.Queues = append(e.state.Queues, q)
	e.emit(model.EventQueueCreated,
		fmt.Sprintf("Queue %q created", name),
		details("queue_id", q.ID, "name", name, "dead_letter_queue_id", opts.DeadLetterQueueID))
	e.notify()

	return cloneQueue(q), nil
}

// CreateConsumer adds an active consumer attached to an existing queue.
func (e *Engine) CreateConsumer(name, queueID string, pos model.Position) (model.Consumer, error) {
	if err := validName(kindConsumer, name); err != nil {
		return model.Consumer{}, err
	}
	qi := e.queueIndex(queueID)
	if qi < 0 {
		return model.Consumer{}, NewNotFoundError(kindQueue, queueID)
	}
	if _, ok := e.ConsumerByName(name); ok {
		return model.Consumer{}, e.conflict(kindConsumer, name, details("name", name))
	}

	c := model.Consumer{
		ID:       e.ids.Generate(),
		Name:     name,
		QueueID:  queueID,
		Position: pos,
		IsActive: true,
	}
	e.state.Consumers = append(e.state.Consumers, c)
	q := &e.state.Queues[qi]
	q.ConsumerIDs = append(q.ConsumerIDs, c.ID)
	e.emit(model.EventConsumerCreated,
		fmt.Sprintf("Consumer %q created for queue %q", name, q.Name),
		details("consumer_id", c.ID, "queue_id", queueID, "name", name))
	e.notify()

	return c, nil
}

// CreateBinding binds a queue to an exchange with a routing key or pattern.
// Several bindings for the same pair are allowed.
func (e *Engine) CreateBinding(exchangeID, queueID, routingKey string) (model.Binding, error) {
	xi := e.exchangeIndex(exchangeID)
	if xi < 0 {
		return model.Binding{}, NewNotFoundError(kindExchange, exchangeID)
	}
	qi := e.queueIndex(queueID)
	if qi < 0 {
		return model.Binding{}, NewNotFoundError(kindQueue, queueID)
	}

	b := model.Binding{
		ID:         e.ids.Generate(),
		ExchangeID: exchangeID,
		QueueID:    queueID,
		RoutingKey: routingKey,
	}
	e.state.Bindings = append(e.state.Bindings, b)
	ex := &e.state.Exchanges[xi]
	ex.BindingIDs = append(ex.BindingIDs, b.ID)
	e.emit(model.EventBindingCreated,
		fmt.Sprintf("Binding created: %s -> %s [%s]", ex.Name, e.state.Queues[qi].Name, routingKey),
		details("binding_id", b.ID, "exchange_id", exchangeID, "queue_id", queueID, "routing_key", routingKey))
	e.notify()

	return b, nil
}

// RenameExchange changes an exchange's name.
func (e *Engine) RenameExchange(id, newName string) error {
	i := e.exchangeIndex(id)
	if i < 0 {
		return NewNotFoundError(kindExchange, id)
	}
	if err := validName(kindExchange, newName); err != nil {
		return err
	}
	if other, ok := e.ExchangeByName(newName); ok && other.ID != id {
		return e.conflict(kindExchange, newName, details("exchange_id", id, "new_name", newName))
	}

	ex := &e.state.Exchanges[i]
	oldName := ex.Name
	ex.Name = newName
	e.emit(model.EventExchangeRenamed,
		fmt.Sprintf("Exchange renamed to %q", newName),
		details("exchange_id", id, "old_name", oldName, "new_name", newName))
	e.notify()
	return nil
}

// RenameQueue changes a queue's name.
func (e *Engine) RenameQueue(id, newName string) error {
	i := e.queueIndex(id)
	if i < 0 {
		return NewNotFoundError(kindQueue, id)
	}
	if err := validName(kindQueue, newName); err != nil {
		return err
	}
	if other, ok := e.QueueByName(newName); ok && other.ID != id {
		return e.conflict(kindQueue, newName, details("queue_id", id, "new_name", newName))
	}

	q := &e.state.Queues[i]
	oldName := q.Name
	q.Name = newName
	e.emit(model.EventQueueRenamed,
		fmt.Sprintf("Queue renamed to %q", newName),
		details("queue_id", id, "old_name", oldName, "new_name", newName))
	e.notify()
	return nil
}

// RenameConsumer changes a consumer's name.
func (e *Engine) RenameConsumer(id, newName string) error {
	i := e.consumerIndex(id)
	if i < 0 {
		return NewNotFoundError(kindConsumer, id)
	}
	if err := validName(kindConsumer, newName); err != nil {
		return err
	}
	if other, ok := e.ConsumerByName(newName); ok && other.ID != id {
		return e.conflict(kindConsumer, newName, details("consumer_id", id, "new_name", newName))
	}

	c := &e.state.Consumers[i]
	oldName := c.Name
	c.Name = newName
	e.emit(model.EventConsumerRenamed,
		fmt.Sprintf("Consumer renamed to %q", newName),
		details("consumer_id", id, "old_name", oldName, "new_name", newName))
	e.notify()
	return nil
}

// DeleteExchange removes an exchange and every binding that references it.
func (e *Engine) DeleteExchange(id string) error {
	i := e.exchangeIndex(id)
	if i < 0 {
		return NewNotFoundError(kindExchange, id)
	}
	name := e.state.Exchanges[i].Name

	e.state.Exchanges = slices.Delete(e.state.Exchanges, i, i+1)
	e.removeBindings(func(b model.Binding) bool { return b.ExchangeID == id })
	e.emit(model.EventExchangeDeleted,
		fmt.Sprintf("Exchange %q deleted", name),
		details("exchange_id", id, "name", name))
	e.notify()
	return nil
}

// DeleteQueue removes a queue with its messages, its consumers and every
// binding that targets it. Dead-letter references held by other queues are
// left in place and stop resolving.
func (e *Engine) DeleteQueue(id string) error {
	i := e.queueIndex(id)
	if i < 0 {
		return NewNotFoundError(kindQueue, id)
	}
	name := e.state.Queues[i].Name

	e.state.Queues = slices.Delete(e.state.Queues, i, i+1)
	e.state.Consumers = slices.DeleteFunc(e.state.Consumers, func(c model.Consumer) bool { return c.QueueID == id })
	e.removeBindings(func(b model.Binding) bool { return b.QueueID == id })
	e.emit(model.EventQueueDeleted,
		fmt.Sprintf("Queue %q deleted", name),
		details("queue_id", id, "name", name))
	e.notify()
	return nil
}

// DeleteConsumer removes a consumer and detaches it from its queue.
func (e *Engine) DeleteConsumer(id string) error {
	i := e.consumerIndex(id)
	if i < 0 {
		return NewNotFoundError(kindConsumer, id)
	}
	c := e.state.Consumers[i]

	e.state.Consumers = slices.Delete(e.state.Consumers, i, i+1)
	if qi := e.queueIndex(c.QueueID); qi >= 0 {
		q := &e.state.Queues[qi]
		q.ConsumerIDs = slices.DeleteFunc(q.ConsumerIDs, func(cid string) bool { return cid == id })
	}
	e.emit(model.EventConsumerDeleted,
		fmt.Sprintf("Consumer %q deleted", c.Name),
		details("consumer_id", id, "queue_id", c.QueueID, "name", c.Name))
	e.notify()
	return nil
}

// removeBindings drops matching bindings from the store and from their
// exchange's binding list.
func (e *Engine) removeBindings(match func(model.Binding) bool) {
	removed := make(map[string]bool)
	e.state.Bindings = slices.DeleteFunc(e.state.Bindings, func(b model.Binding) bool {
		if match(b) {
			removed[b.ID] = true
			return true
		}
		return false
	})
	if len(removed) == 0 {
		return
	}
	for i := range e.state.Exchanges {
		ex := &e.state.Exchanges[i]
		ex.BindingIDs = slices.DeleteFunc(ex.BindingIDs, func(id string) bool { return removed[id] })
	}
}

// MoveExchange updates an exchange's canvas position.
func (e *Engine) MoveExchange(id string, pos model.Position) error {
	i := e.exchangeIndex(id)
	if i < 0 {
		return NewNotFoundError(kindExchange, id)
	}
	ex := &e.state.Exchanges[i]
	ex.Position = pos
	x, y := formatPosition(pos)
	e.emit(model.EventExchangeMoved,
		fmt.Sprintf("Exchange %q moved", ex.Name),
		details("exchange_id", id, "x", x, "y", y))
	e.notify()
	return nil
}

// MoveQueue updates a queue's canvas position.
func (e *Engine) MoveQueue(id string, pos model.Position) error {
	i := e.queueIndex(id)
	if i < 0 {
		return NewNotFoundError(kindQueue, id)
	}
	q := &e.state.Queues[i]
	q.Position = pos
	x, y := formatPosition(pos)
	e.emit(model.EventQueueMoved,
		fmt.Sprintf("Queue %q moved", q.Name),
		details("queue_id", id, "x", x, "y", y))
	e.notify()
	return nil
}

// MoveConsumer updates a consumer's canvas position.
func (e *Engine) MoveConsumer(id string, pos model.Position) error {
	i := e.consumerIndex(id)
	if i < 0 {
		return NewNotFoundError(kindConsumer, id)
	}
	c := &e.state.Consumers[i]
	c.Position = pos
	x, y := formatPosition(pos)
	e.emit(model.EventConsumerMoved,
		fmt.Sprintf("Consumer %q moved", c.Name),
		details("consumer_id", id, "x", x, "y", y))
	e.notify()
	return nil
}

// SetConsumerActive switches delivery to a consumer on or off. Setting the
// current value is a no-op and appends no event.
func (e *Engine) SetConsumerActive(id string, active bool) error {
	i := e.consumerIndex(id)
	if i < 0 {
		return NewNotFoundError(kindConsumer, id)
	}
	c := &e.state.Consumers[i]
	if c.IsActive == active {
		return nil
	}
	c.IsActive = active

	typ, verb := model.EventConsumerActivated, "activated"
	if !active {
		typ, verb = model.EventConsumerDeactivated, "deactivated"
	}
	e.emit(typ,
		fmt.Sprintf("Consumer %q %s", c.Name, verb),
		details("consumer_id", id, "queue_id", c.QueueID))
	e.notify()
	return nil
}

// ExchangeByName finds an exchange by its unique name.
func (e *Engine) ExchangeByName(name string) (model.Exchange, bool) {
	for _, ex := range e.state.Exchanges {
		if ex.Name == name {
			return cloneExchange(ex), true
		}
	}
	return model.Exchange{}, false
}

// QueueByName finds a queue by its unique name.
func (e *Engine) QueueByName(name string) (model.Queue, bool) {
	for _, q := range e.state.Queues {
		if q.Name == name {
			return cloneQueue(q), true
		}
	}
	return model.Queue{}, false
}

// ConsumerByName finds a consumer by its unique name.
func (e *Engine) ConsumerByName(name string) (model.Consumer, bool) {
	for _, c := range e.state.Consumers {
		if c.Name == name {
			return c, true
		}
	}
	return model.Consumer{}, false
}

func cloneExchange(ex model.Exchange) model.Exchange {
	ex.BindingIDs = append([]string{}, ex.BindingIDs...)
	return ex
}

func cloneQueue(q model.Queue) model.Queue {
	q.Messages = append([]model.Message{}, q.Messages...)
	q.ConsumerIDs = append([]string{}, q.ConsumerIDs...)
	return q
}
