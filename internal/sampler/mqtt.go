package sampler

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/motionkit/internal/monitoring"
	"github.com/banshee-data/motionkit/internal/motion"
)

const mqttConnectTimeout = 10 * time.Second

// MQTTSource subscribes to a broker topic carrying sample lines, one
// message per sample. Phones and embedded bridges publish to a topic like
// motion/samples/<device>.
type MQTTSource struct {
	BrokerURL string // e.g. tcp://localhost:1883
	Topic     string
	ClientID  string

	// RotationUnits and AccelerationUnits name the units publishers use.
	// Empty means engine-native (rad/s, g).
	RotationUnits     string
	AccelerationUnits string
}

// NewMQTTSource returns a source for the given broker and topic.
func NewMQTTSource(brokerURL, topic string) *MQTTSource {
	return &MQTTSource{
		BrokerURL: brokerURL,
		Topic:     topic,
		ClientID:  fmt.Sprintf("motionkit-%d", time.Now().Unix()),
	}
}

// Run connects, subscribes, and forwards samples until ctx is cancelled.
// Message order within the subscription is preserved: paho delivers
// callbacks for a single subscription sequentially.
func (m *MQTTSource) Run(ctx context.Context, out chan<- motion.Sample) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(m.BrokerURL)
	opts.SetClientID(m.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetOrderMatters(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return fmt.Errorf("timed out connecting to MQTT broker %s", m.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker %s: %w", m.BrokerURL, err)
	}
	defer client.Disconnect(250)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		sample, err := ParseLine(string(msg.Payload()))
		if err != nil {
			monitoring.Debugf("sampler: skipping MQTT payload: %v", err)
			return
		}
		sample = convertUnits(sample, m.RotationUnits, m.AccelerationUnits)
		if err := send(ctx, out, sample); err != nil {
			return
		}
	}
	if token := client.Subscribe(m.Topic, 0, handler); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", m.Topic, token.Error())
	}
	monitoring.Logf("sampler: subscribed to %s on %s", m.Topic, m.BrokerURL)

	<-ctx.Done()
	return ctx.Err()
}
