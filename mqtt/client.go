// Package mqtt publishes rope length readings to an MQTT broker.
//
// The client is transport agnostic: it runs over anything that looks like a
// TCP connection, so the same code publishes from a Pico W through the lneto
// stack and from a Linux host through package net.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	mqtt "github.com/soypat/natiu-mqtt"
)

// DefaultTopic is used when Client.Topic is empty.
const DefaultTopic = "ropemeasure/length"

const heartbeatReadWindow = 250 * time.Millisecond

var pubFlags, _ = mqtt.NewPublishFlags(mqtt.QoS0, false, false)

// Reading is one published length sample.
type Reading struct {
	Length      float64       `json:"length"` // meters
	Pulses      int64         `json:"pulses"`
	Revolutions float64       `json:"revolutions"`
	Direction   string        `json:"direction"`
	Reset       bool          `json:"reset,omitempty"` // first reading after a reset
	SinceBoot   time.Duration `json:"sinceBootNS"`
}

// Conn is a connected byte stream with deadlines.
type Conn interface {
	io.ReadWriteCloser
	SetDeadline(t time.Time) error
}

// Dialer opens a new connection to the broker.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialFunc adapts a function to the Dialer interface.
type DialFunc func(ctx context.Context) (Conn, error)

func (f DialFunc) Dial(ctx context.Context) (Conn, error) { return f(ctx) }

type Client struct {
	ID                string
	Topic             string
	Timeout           time.Duration
	Logger            *slog.Logger
	HeartbeatInterval time.Duration
	RetryInterval     time.Duration // wait between reconnects
	Username          string        // MQTT broker username (optional)
	Password          string        // MQTT broker password (optional, requires Username)

	packetID uint16
}

// Run dials the broker and publishes readings, reconnecting whenever the
// connection drops. It only returns once ctx is done.
func (c *Client) Run(ctx context.Context, dialer Dialer, readings <-chan Reading) error {
	c.defaults()
	for {
		c.Logger.Info("mqtt:dialing")
		conn, err := dialer.Dial(ctx)
		if err != nil {
			c.Logger.Error("socket:dial-failed", slog.String("err", err.Error()))
		} else {
			err = c.Publish(ctx, conn, readings)
			conn.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.Logger.Error("mqtt:disconnected", slog.Any("reason", err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.RetryInterval):
		}
	}
}

// Publish connects to the broker over conn and publishes every reading
// received until the session fails or ctx is done. The caller closes conn.
func (c *Client) Publish(ctx context.Context, conn Conn, readings <-chan Reading) error {
	c.defaults()

	cfg := mqtt.ClientConfig{
		Decoder: mqtt.DecoderNoAlloc{UserBuffer: make([]byte, 1024)},
		OnPub: func(pubHead mqtt.Header, varPub mqtt.VariablesPublish, r io.Reader) error {
			c.Logger.Info("received message", slog.String("topic", string(varPub.TopicName)))
			return nil
		},
	}
	var varconn mqtt.VariablesConnect
	varconn.SetDefaultMQTT([]byte(c.ID))
	if c.Username != "" {
		varconn.Username = []byte(c.Username)
		if c.Password != "" {
			varconn.Password = []byte(c.Password)
		}
	}

	client := mqtt.NewClient(cfg)

	c.Logger.Info("mqtt:start-connecting")
	conn.SetDeadline(time.Now().Add(c.Timeout))
	if err := client.StartConnect(conn, &varconn); err != nil {
		return errors.New("mqtt start connect: " + err.Error())
	}
	retries := 50
	for retries > 0 && !client.IsConnected() {
		if err := client.HandleNext(); err != nil {
			c.Logger.Error("mqtt:handle-next-failed", slog.String("err", err.Error()))
			time.Sleep(100 * time.Millisecond)
		}
		retries--
	}
	if !client.IsConnected() {
		return errors.New("mqtt connect timed out")
	}
	c.Logger.Info("mqtt:connected")

	pubVar := mqtt.VariablesPublish{TopicName: []byte(c.Topic)}
	heartbeat := time.NewTicker(c.HeartbeatInterval)
	defer heartbeat.Stop()
	for client.IsConnected() {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case reading := <-readings:
			payload, err := json.Marshal(reading)
			if err != nil {
				c.Logger.Error("mqtt:marshal-failed", slog.Any("reason", err))
				continue
			}
			c.packetID++
			pubVar.PacketIdentifier = c.packetID
			conn.SetDeadline(time.Now().Add(c.Timeout))
			if err := client.PublishPayload(pubFlags, pubVar, payload); err != nil {
				c.Logger.Error("mqtt:publish-failed", slog.Any("reason", err))
				continue
			}
			c.Logger.Debug("published message",
				slog.Uint64("packetID", uint64(pubVar.PacketIdentifier)),
			)

		case <-heartbeat.C:
			// Give the client a chance to read anything the broker sent,
			// keeping the session alive between readings.
			conn.SetDeadline(time.Now().Add(heartbeatReadWindow))
			if err := client.HandleNext(); err != nil {
				c.Logger.Debug("mqtt:handle-next-failed", slog.String("err", err.Error()))
			}
		}
	}
	if err := client.Err(); err != nil {
		return err
	}
	return errors.New("mqtt disconnected")
}

func (c *Client) defaults() {
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.ID == "" {
		c.ID = "ropemeasure"
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 2 * time.Second
	}
}
