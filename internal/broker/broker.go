// Package broker adapts the AP-management bus's publish/subscribe
// connection (component K) for steerd. It carries JSON payloads instead
// of the bus's protobuf envelope, since protobuf itself sits outside
// this controller's scope.
package broker

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	zmq "github.com/pebbe/zmq4"
	"go.uber.org/zap"

	"steerd/internal/basedef"
)

type handlerF func(payload []byte)

// Broker is steerd's handle onto the bus: it publishes its own pings and
// subscribes to the topics other daemons, in particular the configuration
// RPC surface, publish on.
type Broker struct {
	name string
	log  *zap.SugaredLogger

	pubMtx    sync.Mutex
	publisher *zmq.Socket
	subscriber *zmq.Socket

	hdlrMtx  sync.Mutex
	handlers map[string]handlerF
}

// New connects to the local bus and starts listening. The caller should
// call Handle for any topics it cares about before traffic starts
// arriving, though Handle is safe to call at any time.
func New(name string, log *zap.SugaredLogger) (*Broker, error) {
	b := &Broker{
		name:     fmt.Sprintf("%s(%d)", name, os.Getpid()),
		log:      log,
		handlers: make(map[string]handlerF),
	}

	sub, err := zmq.NewSocket(zmq.SUB)
	if err != nil {
		return nil, fmt.Errorf("broker: new sub socket: %w", err)
	}
	if err := sub.Connect(basedef.LocalZmqURL + ":" + basedef.BrokerZmqSubPort); err != nil {
		return nil, fmt.Errorf("broker: connect sub: %w", err)
	}
	sub.SetSubscribe("")
	b.subscriber = sub

	pub, err := zmq.NewSocket(zmq.PUB)
	if err != nil {
		return nil, fmt.Errorf("broker: new pub socket: %w", err)
	}
	if err := pub.Connect(basedef.LocalZmqURL + ":" + basedef.BrokerZmqPubPort); err != nil {
		return nil, fmt.Errorf("broker: connect pub: %w", err)
	}
	b.publisher = pub

	go b.listen()
	b.Ping()

	return b, nil
}

// Handle registers a callback for topic, replacing any existing one.
func (b *Broker) Handle(topic string, fn func(payload []byte)) {
	b.hdlrMtx.Lock()
	b.handlers[topic] = fn
	b.hdlrMtx.Unlock()
}

// Publish marshals v as JSON and sends it on topic.
func (b *Broker) Publish(topic string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("broker: marshal %s: %w", topic, err)
	}

	b.pubMtx.Lock()
	_, err = b.publisher.SendMessage(topic, data)
	b.pubMtx.Unlock()
	if err != nil {
		return fmt.Errorf("broker: send %s: %w", topic, err)
	}
	return nil
}

// Ping announces liveness on the well-known ping topic.
func (b *Broker) Ping() {
	if err := b.Publish(basedef.TopicPing, map[string]string{"sender": b.name}); err != nil {
		b.log.Warnw("ping publish failed", "error", err)
	}
}

func (b *Broker) listen() {
	for {
		msg, err := b.subscriber.RecvMessageBytes(0)
		if err != nil {
			b.log.Warnw("subscriber recv failed", "error", err)
			continue
		}
		topic := string(msg[0])
		b.hdlrMtx.Lock()
		hdlr, ok := b.handlers[topic]
		b.hdlrMtx.Unlock()
		if ok && hdlr != nil {
			hdlr(msg[1])
		}
	}
}

// Close tears down the subscriber connection.
func (b *Broker) Close() error {
	return b.subscriber.Close()
}
