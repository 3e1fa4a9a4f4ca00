package input

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/debug"
)

// Offset is one vision tracking correction, radians relative to the
// gimbal's current orientation.
type Offset struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
}

// Sink receives decoded vision offsets.
type Sink interface {
	CVInput(yawOffset, pitchOffset float64)
}

// VisionBridge subscribes to an MQTT topic carrying tracking offsets
// from the vision pipeline and forwards them to the gimbal.
type VisionBridge struct {
	client mqtt.Client
	topic  string
}

// StartVision connects to the broker and subscribes. Malformed
// payloads are logged and dropped; they never reach the controller.
func StartVision(broker, clientID, topic string, sink Sink) (*VisionBridge, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", broker, token.Error())
	}
	debug.Info("Vision bridge connected to %s", broker)

	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		handleOffset(sink, msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		client.Disconnect(250)
		return nil, fmt.Errorf("subscribe to %s: %w", topic, token.Error())
	}
	debug.Info("Vision bridge subscribed to %s", topic)

	return &VisionBridge{client: client, topic: topic}, nil
}

// handleOffset decodes a payload and forwards it to the sink.
func handleOffset(sink Sink, payload []byte) {
	var o Offset
	if err := json.Unmarshal(payload, &o); err != nil {
		debug.Error(fmt.Errorf("vision offset unmarshal: %w", err))
		return
	}
	sink.CVInput(o.Yaw, o.Pitch)
}

// Close disconnects from the broker.
func (b *VisionBridge) Close() {
	b.client.Disconnect(250)
}
