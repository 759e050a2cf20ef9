// Package evbus is the internal publish/subscribe fabric used inside the
// controller subscription (publishing Ready/Connected/
// InputChange/ConnectionError to the UI goroutine, spec.md §4.8). The
// agent does not use it; its outbound events go through internal/pinring.
//
// It is adapted wholesale from the teacher's bus package (bus/bus.go): a
// topic-trie with retained messages and a bounded per-subscriber channel
// that drops the oldest undelivered message on overflow rather than
// blocking the publisher. The multi-wildcard ("#") matching the teacher
// supports is dropped here — every topic this system needs is either a
// single fixed token or uses the single-wildcard ("+") form, so the extra
// trie branch has no call site.
package evbus

import (
	"sync"
	"sync/atomic"
)

// Token is a single topic segment; Topic is an ordered sequence of them.
type Token = string
type Topic []Token

// T builds a Topic from its segments, mirroring bus.T.
func T(tokens ...Token) Topic { return Topic(tokens) }

const wildcard Token = "+"

// Message is one published value, optionally retained so a late subscriber
// sees the last one immediately (spec.md §4.8: "Connected precedes any
// InputChange").
type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ID       uint32
}

type Subscription struct {
	topic Topic
	ch    chan *Message
	bus   *Bus
}

func (s *Subscription) Channel() <-chan *Message { return s.ch }

type node struct {
	children map[Token]*node
	subs     []*Subscription
	retained *Message
}

func ensureChild(n *node, t Token) *node {
	if n.children == nil {
		n.children = make(map[Token]*node)
	}
	if n.children[t] == nil {
		n.children[t] = &node{}
	}
	return n.children[t]
}

// Bus is one process-local event fabric; the agent and the controller
// subscription each own their own instance.
type Bus struct {
	mu    sync.Mutex
	root  *node
	qLen  int
	idCtr atomic.Uint32
}

// New returns a Bus whose per-subscriber channels hold qLen undelivered
// messages before the oldest is dropped.
func New(qLen int) *Bus {
	if qLen <= 0 {
		qLen = 4
	}
	return &Bus{root: &node{}, qLen: qLen}
}

func (b *Bus) nextID() uint32 { return b.idCtr.Add(1) }

// Subscribe registers for topic, immediately delivering any retained
// message whose topic matches.
func (b *Bus) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{topic: topic, ch: make(chan *Message, b.qLen), bus: b}

	b.mu.Lock()
	n := b.root
	for _, t := range topic {
		n = ensureChild(n, t)
	}
	n.subs = append(n.subs, sub)
	var retained []*Message
	b.collectRetainedLocked(b.root, topic, 0, &retained)
	b.mu.Unlock()

	for _, rm := range retained {
		b.tryDeliver(sub, rm)
	}
	return sub
}

// Unsubscribe removes sub and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	n := b.root
	var stack []*node
	for _, t := range sub.topic {
		if n.children == nil {
			b.mu.Unlock()
			return
		}
		child := n.children[t]
		if child == nil {
			b.mu.Unlock()
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
	b.pruneEmptyLocked(stack, sub.topic)
	b.mu.Unlock()
	close(sub.ch)
}

func (b *Bus) pruneEmptyLocked(stack []*node, path []Token) {
	for i := len(path) - 1; i >= 0; i-- {
		parent := stack[i]
		key := path[i]
		child := parent.children[key]
		if child != nil && len(child.subs) == 0 && len(child.children) == 0 && child.retained == nil {
			delete(parent.children, key)
		} else {
			break
		}
	}
}

// Publish delivers payload to every matching subscriber. Retained
// publications overwrite (or, with a nil payload, delete) the retained
// slot for topic.
func (b *Bus) Publish(topic Topic, payload any, retained bool) {
	msg := &Message{Topic: topic, Payload: payload, Retained: retained, ID: b.nextID()}

	b.mu.Lock()
	var subs []*Subscription
	b.collectSubscribersLocked(b.root, topic, 0, &subs)
	if retained {
		if payload == nil {
			b.retainDeleteLocked(topic)
		} else {
			b.retainSetLocked(topic, msg)
		}
	}
	b.mu.Unlock()

	for _, sub := range subs {
		b.tryDeliver(sub, msg)
	}
}

func trySend(ch chan *Message, m *Message) bool {
	select {
	case ch <- m:
		return true
	default:
		return false
	}
}

func drainOne(ch chan *Message) {
	select {
	case <-ch:
	default:
	}
}

// tryDeliver never blocks: on a full subscriber channel it drops the
// oldest queued message and retries once, matching the teacher's
// trySend-then-drainOne policy.
func (b *Bus) tryDeliver(sub *Subscription, msg *Message) {
	defer func() { _ = recover() }() // channel may be mid-close; best effort
	if trySend(sub.ch, msg) {
		return
	}
	drainOne(sub.ch)
	_ = trySend(sub.ch, msg)
}

func (b *Bus) collectSubscribersLocked(n *node, topic Topic, depth int, out *[]*Subscription) {
	if n == nil {
		return
	}
	if depth == len(topic) {
		*out = append(*out, n.subs...)
		return
	}
	tok := topic[depth]
	if n.children != nil {
		if child := n.children[tok]; child != nil {
			b.collectSubscribersLocked(child, topic, depth+1, out)
		}
		if sw := n.children[wildcard]; sw != nil {
			b.collectSubscribersLocked(sw, topic, depth+1, out)
		}
	}
}

func (b *Bus) retainSetLocked(topic Topic, msg *Message) {
	n := b.root
	for _, t := range topic {
		n = ensureChild(n, t)
	}
	n.retained = msg
}

func (b *Bus) retainDeleteLocked(topic Topic) {
	n := b.root
	var stack []*node
	for _, t := range topic {
		if n.children == nil {
			return
		}
		child := n.children[t]
		if child == nil {
			return
		}
		stack = append(stack, n)
		n = child
	}
	n.retained = nil
	b.pruneEmptyLocked(stack, topic)
}

func (b *Bus) collectRetainedLocked(n *node, pattern Topic, depth int, out *[]*Message) {
	if n == nil {
		return
	}
	if depth == len(pattern) {
		if n.retained != nil {
			*out = append(*out, n.retained)
		}
		return
	}
	ptok := pattern[depth]
	if ptok == wildcard {
		for _, child := range n.children {
			b.collectRetainedLocked(child, pattern, depth+1, out)
		}
		return
	}
	if child := n.children[ptok]; child != nil {
		b.collectRetainedLocked(child, pattern, depth+1, out)
	}
}
