// Package publish forwards readings to an MQTT broker.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"stm32adc/host/config"
	"stm32adc/host/monitor"
)

const mqttPublishTimeout = time.Millisecond * 200

// Message is the JSON body published per channel.
type Message struct {
	Time       time.Time `json:"time"`
	Generation uint32    `json:"generation"`
	Raw        uint16    `json:"raw"`
	Volts      float64   `json:"volts"`
}

// Publisher is a monitor sink that publishes one message per channel to
// <topic>/<board>/<channel> and the supply to <topic>/<board>/vdda.
type Publisher struct {
	log         zerolog.Logger
	mutex       sync.Mutex
	topicPrefix string
	clientID    string
	broker      string
	client      mqttapi.Client
}

var _ monitor.Sink = (*Publisher)(nil)

// New creates an unconnected publisher.
func New(log zerolog.Logger, cfg config.MQTTConfig, board string) *Publisher {
	topic := strings.TrimSuffix(cfg.Topic, "/")
	if topic == "" {
		topic = config.DefaultMQTTTopic
	}
	topic += "/" + board
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("adcmon-%s", board)
	}
	return &Publisher{
		log:         log,
		topicPrefix: topic + "/",
		clientID:    clientID,
		broker:      cfg.Broker,
	}
}

// Connect dials the broker.
func (p *Publisher) Connect(ctx context.Context) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	opts := mqttapi.NewClientOptions().
		AddBroker("tcp://" + p.broker).
		SetClientID(p.clientID)
	opts.SetKeepAlive(2 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetOrderMatters(false)

	p.client = mqttapi.NewClient(opts)
	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		p.client = nil
		return errors.Wrapf(token.Error(), "failed to connect to mqtt broker %s", p.broker)
	}
	p.log.Info().Str("broker", p.broker).Str("topic", p.topicPrefix).Msg("Connected to MQTT")
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.client != nil {
		p.client.Disconnect(250)
		p.client = nil
	}
	return nil
}

// Name implements monitor.Sink.
func (p *Publisher) Name() string {
	return "mqtt"
}

// Handle publishes rd. Deliveries that do not complete in time are logged,
// not returned.
func (p *Publisher) Handle(ctx context.Context, rd *monitor.Reading) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.client == nil {
		return errors.New("mqtt not connected")
	}
	msgs, err := p.Messages(rd)
	if err != nil {
		return err
	}
	for topic, payload := range msgs {
		token := p.client.Publish(topic, 0, false, payload)
		if !token.WaitTimeout(mqttPublishTimeout) {
			p.log.Error().Err(token.Error()).
				Str("topic", topic).
				Msg("failed to deliver MQTT message in time")
		}
	}
	return nil
}

// Messages formats rd as topic to payload. When a frame holds several scans
// the last sample of each channel wins.
func (p *Publisher) Messages(rd *monitor.Reading) (map[string][]byte, error) {
	result := make(map[string][]byte, len(rd.Channels)+1)
	for i, name := range rd.Channels {
		data, err := json.Marshal(Message{
			Time:       rd.Time,
			Generation: rd.Generation,
			Raw:        rd.Raw[i],
			Volts:      rd.Volts[i],
		})
		if err != nil {
			return nil, errors.WithStack(err)
		}
		result[p.topicPrefix+name] = data
	}
	result[p.topicPrefix+"vdda"] = []byte(fmt.Sprintf("%.6f", float64(rd.VddaUV)/1e6))
	return result, nil
}
