package nats

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/nerrad567/weatherstation-core/internal/infrastructure/config"
)

func testConfig() config.NATSConfig {
	return config.NATSConfig{
		Enabled:       true,
		URL:           "nats://127.0.0.1:4222",
		Name:          "weatherstation-test",
		Token:         "s3cret",
		MaxReconnects: -1,
		ReconnectWait: 2,
	}
}

func TestSubjects(t *testing.T) {
	s := Subjects{Site: "lsst"}

	tests := []struct {
		got, want string
	}{
		{s.Telemetry("windSpeed"), "weatherstation.lsst.telemetry.windSpeed"},
		{s.Event("errorCode"), "weatherstation.lsst.event.errorCode"},
		{s.AllTelemetry(), "weatherstation.lsst.telemetry.*"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("subject = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestBuildOptions(t *testing.T) {
	c := &Client{}
	opts := natsgo.GetDefaultOptions()
	for _, opt := range c.buildOptions(testConfig()) {
		if err := opt(&opts); err != nil {
			t.Fatalf("option error = %v", err)
		}
	}

	if opts.Name != "weatherstation-test" {
		t.Errorf("Name = %q", opts.Name)
	}
	if opts.Token != "s3cret" {
		t.Errorf("Token not applied")
	}
	if opts.MaxReconnect != -1 {
		t.Errorf("MaxReconnect = %d, want -1", opts.MaxReconnect)
	}
	if opts.ReconnectWait != 2*time.Second {
		t.Errorf("ReconnectWait = %v, want 2s", opts.ReconnectWait)
	}
	if opts.DisconnectedErrCB == nil || opts.ReconnectedCB == nil {
		t.Error("connection handlers not installed")
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	if _, err := Connect(context.Background(), cfg, "lsst", nil); !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	cfg := testConfig()
	cfg.URL = "nats://" + addr
	if _, err := Connect(context.Background(), cfg, "lsst", nil); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestPublish_NotConnected(t *testing.T) {
	c := &Client{subjects: Subjects{Site: "lsst"}}

	if err := c.Publish("", nil); !errors.Is(err, ErrInvalidSubject) {
		t.Errorf("Publish(empty) error = %v, want ErrInvalidSubject", err)
	}
	if err := c.Publish(c.Subjects().Telemetry("weather"), []byte("{}")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
	if err := c.PublishJSON("x", make(chan int)); err == nil {
		t.Error("PublishJSON(chan) should fail to encode")
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestServer_PublishSubscribe(t *testing.T) {
	conn, err := net.DialTimeout("tcp", "127.0.0.1:4222", 200*time.Millisecond)
	if err != nil {
		t.Skip("no NATS server at 127.0.0.1:4222")
	}
	conn.Close()

	cfg := testConfig()
	cfg.Token = ""
	client, err := Connect(context.Background(), cfg, "test-site", nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	sub, err := natsgo.Connect(cfg.URL)
	if err != nil {
		t.Fatalf("subscriber Connect() error = %v", err)
	}
	defer sub.Close()

	msgs := make(chan *natsgo.Msg, 1)
	s, err := sub.ChanSubscribe(client.Subjects().AllTelemetry(), msgs)
	if err != nil {
		t.Fatalf("ChanSubscribe() error = %v", err)
	}
	defer s.Unsubscribe()
	if err := sub.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	if err := client.PublishJSON(client.Subjects().Telemetry("weather"), map[string]float64{"ambient_temp": 22.15}); err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}

	select {
	case msg := <-msgs:
		if string(msg.Data) != `{"ambient_temp":22.15}` {
			t.Errorf("payload = %s", msg.Data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message not received")
	}
}
