// Package heartbeat ingests player status messages published over MQTT.
package heartbeat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

// StatusTopic matches players/<id>/status for every player.
const StatusTopic = "players/+/status"

const (
	qos             = 1
	disconnectQuiet = 250 // ms
	handleTimeout   = 5 * time.Second
)

// Recorder persists a heartbeat. db.Store satisfies it.
type Recorder interface {
	RecordHeartbeat(ctx context.Context, playerID string, status model.PlayerStatus) error
}

type statusPayload struct {
	Status model.PlayerStatus `json:"status"`
}

type Listener struct {
	client   mqtt.Client
	recorder Recorder
}

func NewListener(brokerURL, clientID string, recorder Recorder) *Listener {
	l := &Listener{recorder: recorder}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.OnConnect = func(c mqtt.Client) {
		log.Info().Str("broker", brokerURL).Msg("[heartbeat] connected to MQTT broker")
		// resubscribe after every reconnect, the session is clean
		if token := c.Subscribe(StatusTopic, qos, l.handleStatus); token.Wait() && token.Error() != nil {
			log.Error().Err(token.Error()).Str("topic", StatusTopic).Msg("[heartbeat] subscribe failed")
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("[heartbeat] connection lost")
	}

	l.client = mqtt.NewClient(opts)
	return l
}

// Start connects to the broker; subscription happens in the connect handler.
func (l *Listener) Start() error {
	if token := l.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return nil
}

func (l *Listener) Stop() {
	if l.client.IsConnected() {
		l.client.Unsubscribe(StatusTopic).Wait()
	}
	l.client.Disconnect(disconnectQuiet)
	log.Info().Msg("[heartbeat] MQTT client disconnected")
}

// playerFromTopic extracts the id from players/<id>/status.
func playerFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "players" || parts[2] != "status" {
		return "", fmt.Errorf("unexpected topic %q", topic)
	}
	if _, err := uuid.Parse(parts[1]); err != nil {
		return "", fmt.Errorf("invalid player id %q", parts[1])
	}
	return parts[1], nil
}

func parseStatus(payload []byte) (model.PlayerStatus, error) {
	var p statusPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", fmt.Errorf("invalid payload: %w", err)
	}
	if !p.Status.IsValid() {
		return "", errors.New("status must be online or offline")
	}
	return p.Status, nil
}

func (l *Listener) handleStatus(_ mqtt.Client, msg mqtt.Message) {
	playerID, err := playerFromTopic(msg.Topic())
	if err != nil {
		log.Warn().Err(err).Msg("[heartbeat] dropped message")
		return
	}
	status, err := parseStatus(msg.Payload())
	if err != nil {
		log.Warn().Err(err).Str("player_id", playerID).Msg("[heartbeat] dropped message")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()
	if err := l.recorder.RecordHeartbeat(ctx, playerID, status); err != nil {
		log.Warn().Err(err).Str("player_id", playerID).Msg("[heartbeat] could not record status")
		return
	}
	log.Debug().Str("player_id", playerID).Str("status", string(status)).Msg("[heartbeat] recorded")
}
