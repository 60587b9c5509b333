// Package bus is a small in-process publish/subscribe bus used to carry
// driver and service events: received lines, completed bus transactions,
// sketch state. Topics are slash-separated paths stored in a trie; a "+"
// element in a subscription matches exactly one level. Messages can be
// retained, and a ReplyTo topic supports request/reply between services.
package bus

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Topic is a sequence of path elements.
type Topic []string

// T parses a slash-separated topic path.
func T(path string) Topic {
	if path == "" {
		return nil
	}
	return Topic(strings.Split(path, "/"))
}

func (t Topic) String() string { return strings.Join(t, "/") }

// Wildcard matches exactly one topic element in a subscription.
const Wildcard = "+"

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

type node struct {
	children map[string]*node
	subs     []*Subscription
	retained *Message
}

type Bus struct {
	mu   sync.RWMutex
	root *node
	qLen int

	replySeq atomic.Uint64
}

// New creates a bus with the given per-subscription queue length.
func New(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{root: &node{}, qLen: queueLen}
}

// NewMessage builds a message for publication.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// addSubscription inserts a subscription into the trie, then delivers any
// retained messages its topic matches.
func (b *Bus) addSubscription(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, el := range topic {
		if n.children == nil {
			n.children = make(map[string]*node)
		}
		child, ok := n.children[el]
		if !ok {
			child = &node{}
			n.children[el] = child
		}
		n = child
	}
	n.subs = append(n.subs, sub)

	deliverRetained(b.root, topic, sub)
}

// deliverRetained walks the trie along the subscription topic, expanding
// wildcards, and offers each retained message found at a terminal node.
func deliverRetained(n *node, topic Topic, sub *Subscription) {
	if len(topic) == 0 {
		if n.retained != nil {
			select {
			case sub.ch <- n.retained:
			default:
			}
		}
		return
	}
	if topic[0] == Wildcard {
		for _, child := range n.children {
			deliverRetained(child, topic[1:], sub)
		}
		return
	}
	if child, ok := n.children[topic[0]]; ok {
		deliverRetained(child, topic[1:], sub)
	}
}

// Publish delivers a message to every subscription matching its topic,
// literal elements and wildcards alike. A subscriber that cannot keep up
// loses its oldest queued message, never the bus's liveness. A retained
// message with a nil payload clears the retention point.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	collectAndDeliver(b.root, msg.Topic, msg)

	if !msg.Retained {
		return
	}
	n := b.root
	for _, el := range msg.Topic {
		if n.children == nil {
			n.children = make(map[string]*node)
		}
		child, ok := n.children[el]
		if !ok {
			child = &node{}
			n.children[el] = child
		}
		n = child
	}
	if msg.Payload == nil {
		n.retained = nil
	} else {
		n.retained = msg
	}
}

// collectAndDeliver walks the trie along the published topic, following both
// the literal child and the wildcard child at every level.
func collectAndDeliver(n *node, topic Topic, msg *Message) {
	if len(topic) == 0 {
		for _, sub := range n.subs {
			select {
			case sub.ch <- msg:
			default:
				// Drop the oldest queued message for a slow subscriber.
				select {
				case <-sub.ch:
				default:
				}
				select {
				case sub.ch <- msg:
				default:
				}
			}
		}
		return
	}
	if n.children == nil {
		return
	}
	if child, ok := n.children[topic[0]]; ok {
		collectAndDeliver(child, topic[1:], msg)
	}
	if child, ok := n.children[Wildcard]; ok {
		collectAndDeliver(child, topic[1:], msg)
	}
}

func (b *Bus) unsubscribe(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	var stack []*node
	for _, el := range topic {
		if n.children == nil {
			return
		}
		child, ok := n.children[el]
		if !ok {
			return
		}
		stack = append(stack, n)
		n = child
	}

	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}

	// Prune empty nodes.
	for i := len(topic) - 1; i >= 0; i-- {
		parent := stack[i]
		child := parent.children[topic[i]]
		if len(child.subs) == 0 && len(child.children) == 0 && child.retained == nil {
			delete(parent.children, topic[i])
		} else {
			break
		}
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

// Connection is one client's handle on the bus, owning its subscriptions.
type Connection struct {
	bus *Bus
	id  string

	mu   sync.Mutex
	subs []*Subscription
}

func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

// NewMessage builds a message for publication.
func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.bus.addSubscription(topic, sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub.topic, sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	close(sub.ch)
}

// Request publishes msg with a unique ReplyTo topic and waits for the first
// message published there.
func (c *Connection) Request(ctx context.Context, msg *Message) (*Message, error) {
	replyTo := Topic{"reply", c.id, strconv.FormatUint(c.bus.replySeq.Add(1), 10)}
	sub := c.Subscribe(replyTo)
	defer c.Unsubscribe(sub)

	msg.ReplyTo = replyTo
	c.bus.Publish(msg)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case reply := <-sub.ch:
		return reply, nil
	}
}

// Reply answers a request on its ReplyTo topic. Requests without a ReplyTo
// are ignored.
func (c *Connection) Reply(req *Message, payload any) {
	if len(req.ReplyTo) == 0 {
		return
	}
	c.bus.Publish(&Message{Topic: req.ReplyTo, Payload: payload})
}

// Disconnect closes every subscription owned by the connection.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub.topic, sub)
		close(sub.ch)
	}
}
