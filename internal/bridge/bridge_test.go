package bridge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/nestwire/nestwire-core/internal/apperr"
	"github.com/nestwire/nestwire-core/internal/device"
	"github.com/nestwire/nestwire-core/internal/infrastructure/config"
	"github.com/nestwire/nestwire-core/internal/infrastructure/database/dbtest"
	"github.com/nestwire/nestwire-core/internal/infrastructure/mqtt"
)

// mockClient records publishes and subscriptions.
type mockClient struct {
	mu         sync.Mutex
	published  []publishCall
	subscribed map[string]mqtt.MessageHandler
	publishErr error
}

type publishCall struct {
	topic   string
	payload string
}

func newMockClient() *mockClient {
	return &mockClient{subscribed: make(map[string]mqtt.MessageHandler)}
}

func (m *mockClient) Publish(topic string, payload []byte, _ byte, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, publishCall{topic, string(payload)})
	return nil
}

func (m *mockClient) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribed[topic] = handler
	return nil
}

func (m *mockClient) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscribed, topic)
	return nil
}

func (m *mockClient) filters() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.subscribed))
	for f := range m.subscribed {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// mockRegistry records merge-updates.
type mockRegistry struct {
	mu      sync.Mutex
	calls   []mergeCall
	err     error
	nomatch bool
}

type mergeCall struct {
	scope    device.Scope
	endpoint int
	value    device.Value
}

func (m *mockRegistry) UpdateEndpointValue(_ context.Context, scope device.Scope, ep int, v device.Value, _ time.Time) (device.MergeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, mergeCall{scope, ep, v})
	if m.err != nil {
		return device.MergeResult{}, m.err
	}
	return device.MergeResult{Matched: !m.nomatch, DeviceID: "d"}, nil
}

func (m *mockRegistry) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func newTestBridge(t *testing.T, topology string) (*Bridge, *mockClient, *mockRegistry) {
	t.Helper()
	client := newMockClient()
	reg := &mockRegistry{}
	b, err := New(Options{Client: client, Registry: reg, Topology: topology, QoS: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return b, client, reg
}

func TestClassify(t *testing.T) {
	tests := []struct {
		topology string
		topic    string
		want     string
		kind     string
	}{
		{config.ScopeRoom, "room7/device", "room:room7", "control_echo"},
		{config.ScopeRoom, "room7/status", "room:room7", "sensor_status"},
		{config.ScopeRoom, "devices/d1/state", "device:d1", "sensor_status"},
		{config.ScopeRoom, "h1/room7/device", "", ""},
		{config.ScopeRoom, "room7/other", "", ""},
		{config.ScopeRoom, "room7", "", ""},
		{config.ScopeRoom, "/device", "", ""},
		{config.ScopeRoom, "a/b/c/device", "", ""},
		{config.ScopeDevice, "d1/device", "device:d1", "control_echo"},
		{config.ScopeDevice, "d1/status", "device:d1", "sensor_status"},
		{config.ScopeHouseRoom, "h1/room7/device", "house:h1/room:room7", "control_echo"},
		{config.ScopeHouseRoom, "h1/room7/status", "house:h1/room:room7", "sensor_status"},
		{config.ScopeHouseRoom, "room7/device", "room:room7", "control_echo"},
		{config.ScopeHouseRoom, "devices/d1/state", "device:d1", "sensor_status"},
		{config.ScopeHouseRoom, "h1//device", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.topology+" "+tt.topic, func(t *testing.T) {
			b, _, _ := newTestBridge(t, tt.topology)
			rt, ok := b.classify(tt.topic)
			if tt.want == "" {
				if ok {
					t.Errorf("classify(%q) = %v, want unrecognised", tt.topic, rt.scope)
				}
				return
			}
			if !ok {
				t.Fatalf("classify(%q) unrecognised", tt.topic)
			}
			if rt.scope.String() != tt.want || rt.kind.String() != tt.kind {
				t.Errorf("classify(%q) = %s %s, want %s %s", tt.topic, rt.kind, rt.scope, tt.kind, tt.want)
			}
		})
	}
}

func TestStartSubscribesTopologyFilters(t *testing.T) {
	tests := []struct {
		topology string
		want     string
	}{
		{config.ScopeRoom, "[+/device +/status devices/+/state]"},
		{config.ScopeDevice, "[+/device +/status devices/+/state]"},
		{config.ScopeHouseRoom, "[+/+/device +/+/status +/device +/status devices/+/state]"},
	}
	for _, tt := range tests {
		t.Run(tt.topology, func(t *testing.T) {
			b, client, _ := newTestBridge(t, tt.topology)
			if err := b.Start(context.Background()); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			if got := fmt.Sprint(client.filters()); got != tt.want {
				t.Errorf("filters = %s, want %s", got, tt.want)
			}
			b.Stop()
			if got := client.filters(); len(got) != 0 {
				t.Errorf("filters after Stop = %v", got)
			}
		})
	}
}

func TestHandleMessage_UnrecognisedTopicHasNoStorageWrite(t *testing.T) {
	b, _, reg := newTestBridge(t, config.ScopeRoom)

	for _, topic := range []string{"room7", "a/b/c/d", "room7/unknown", "devices/d1/other", ""} {
		b.HandleMessage(topic, []byte(`{"device1":1}`))
	}

	if reg.count() != 0 {
		t.Errorf("registry calls = %d, want 0", reg.count())
	}
	if got := b.Stats(); got.Dropped != 5 || got.Received != 5 {
		t.Errorf("stats = %+v", got)
	}
}

func TestHandleMessage_DecodeAndStorageFailures(t *testing.T) {
	b, _, reg := newTestBridge(t, config.ScopeRoom)

	b.HandleMessage("room7/device", []byte(`not json`))
	b.HandleMessage("room7/device", []byte(`{"id":1}`))
	if reg.count() != 0 {
		t.Fatalf("registry calls after malformed payloads = %d", reg.count())
	}

	reg.err = apperr.Transient(errors.New("database is locked"))
	b.HandleMessage("room7/device", []byte(`{"device1":1,"device2":0}`))
	if reg.count() != 2 {
		t.Errorf("registry calls = %d, want both deltas attempted", reg.count())
	}

	reg.err = nil
	reg.nomatch = true
	b.HandleMessage("room7/status", []byte(`25.5`))

	stats := b.Stats()
	if stats.Dropped != 2 || stats.Failed != 2 || stats.Unmatched != 1 || stats.Applied != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

type panickingRegistry struct{}

func (panickingRegistry) UpdateEndpointValue(context.Context, device.Scope, int, device.Value, time.Time) (device.MergeResult, error) {
	panic("boom")
}

func TestHandleMessage_RecoversPanics(t *testing.T) {
	b, err := New(Options{Client: newMockClient(), Registry: panickingRegistry{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	b.HandleMessage("room7/device", []byte(`{"device1":1}`))
	if b.Stats().Failed != 1 {
		t.Errorf("Failed = %d, want 1", b.Stats().Failed)
	}
}

func TestSend(t *testing.T) {
	room := "room7"
	dev := &device.Device{
		ID: "D1", HouseID: "h1", RoomID: &room,
		Endpoints: []device.Endpoint{
			{ID: 1, Value: device.Text("ON")},
			{ID: 2, Value: device.Text("OFF")},
			{ID: 3, Value: device.Text("OFF")},
		},
	}

	tests := []struct {
		topology string
		dev      *device.Device
		topic    string
		noRoute  bool
	}{
		{config.ScopeRoom, dev, "room7/device", false},
		{config.ScopeDevice, dev, "D1/device", false},
		{config.ScopeHouseRoom, dev, "h1/room7/device", false},
		{config.ScopeRoom, &device.Device{ID: "loose", HouseID: "h1"}, "", true},
		{config.ScopeHouseRoom, &device.Device{ID: "loose", HouseID: "h1"}, "", true},
		{config.ScopeDevice, &device.Device{ID: "loose", HouseID: "h1"}, "loose/device", false},
	}

	for _, tt := range tests {
		t.Run(tt.topology+" "+tt.dev.ID, func(t *testing.T) {
			b, client, _ := newTestBridge(t, tt.topology)
			topic, payload, err := b.Send(context.Background(), tt.dev, 1, 0)
			if tt.noRoute {
				if !errors.Is(err, ErrNoRoute) || !errors.Is(err, apperr.ErrValidation) {
					t.Errorf("Send() error = %v, want ErrNoRoute", err)
				}
				if len(client.published) != 0 {
					t.Error("published despite missing route")
				}
				return
			}
			if err != nil {
				t.Fatalf("Send() error = %v", err)
			}
			if topic != tt.topic {
				t.Errorf("topic = %q, want %q", topic, tt.topic)
			}
			if string(payload) != `{"device1":0,"device2":0,"device3":0}` {
				t.Errorf("payload = %s", payload)
			}
			if len(client.published) != 1 || client.published[0].topic != tt.topic {
				t.Errorf("published = %+v", client.published)
			}
		})
	}

	t.Run("publish failure is transient", func(t *testing.T) {
		b, client, _ := newTestBridge(t, config.ScopeRoom)
		client.publishErr = mqtt.ErrNotConnected
		_, _, err := b.Send(context.Background(), dev, 1, 1)
		if !errors.Is(err, apperr.ErrTransient) || !errors.Is(err, mqtt.ErrNotConnected) {
			t.Errorf("Send() error = %v, want transient wrapping ErrNotConnected", err)
		}
	})
}

func TestNewRejectsUnknownTopology(t *testing.T) {
	_, err := New(Options{Client: newMockClient(), Registry: &mockRegistry{}, Topology: "floor"})
	if !errors.Is(err, ErrUnknownTopology) {
		t.Errorf("New() error = %v, want ErrUnknownTopology", err)
	}
}

// Inbound echo on room7/device updates the device in room7.
func TestRoomEchoUpdatesRegistry(t *testing.T) {
	db := dbtest.New(t)
	dbtest.SeedHouse(t, db, "h1", "owner")
	dbtest.SeedRoom(t, db, "room7", "h1")

	reg := device.NewRegistry(device.NewSQLiteRepository(db))
	room := "room7"
	dev := &device.Device{
		HouseID: "h1", RoomID: &room, Name: "Switch",
		Endpoints: []device.Endpoint{
			{ID: 1, Name: "A", Type: device.EndpointSwitch, Value: device.Text("OFF")},
			{ID: 2, Name: "B", Type: device.EndpointSwitch, Value: device.Text("ON")},
			{ID: 3, Name: "C", Type: device.EndpointSwitch, Value: device.Text("OFF")},
		},
	}
	if err := reg.CreateDevice(context.Background(), dev); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	b, err := New(Options{Client: newMockClient(), Registry: reg})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	b.now = func() time.Time { return dbtest.Epoch }

	b.HandleMessage("room7/device", []byte(`{"device1":1,"device2":0,"device3":1}`))

	got, err := reg.GetDevice(context.Background(), dev.ID)
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	want := map[int]int64{1: 1, 2: 0, 3: 1}
	for id, v := range want {
		ep, _ := got.Endpoint(id)
		if !ep.Value.Equal(device.Int(v)) || !ep.LastUpdated.Equal(dbtest.Epoch) {
			t.Errorf("endpoint %d = %v at %v, want %d at %v", id, ep.Value, ep.LastUpdated, v, dbtest.Epoch)
		}
	}
	if !got.Online {
		t.Error("device not marked online")
	}
	if s := b.Stats(); s.Applied != 3 {
		t.Errorf("Applied = %d, want 3", s.Applied)
	}
}
