package codec

import (
	"errors"
	"fmt"
	"testing"

	"github.com/nestwire/nestwire-core/internal/apperr"
	"github.com/nestwire/nestwire-core/internal/device"
)

func deviceWith(values map[int]device.Value) *device.Device {
	d := &device.Device{ID: "d1", HouseID: "h1", Name: "switch"}
	for id := 1; id <= 4; id++ {
		if v, ok := values[id]; ok {
			d.Endpoints = append(d.Endpoints, device.Endpoint{ID: id, Name: fmt.Sprint(id), Type: device.EndpointSwitch, Value: v})
		}
	}
	return d
}

func TestBuildCompositePayload(t *testing.T) {
	c := Default()

	tests := []struct {
		name   string
		values map[int]device.Value
		target int
		value  int
		want   string
	}{
		{
			name:   "turn off endpoint 1",
			values: map[int]device.Value{1: device.Text("ON"), 2: device.Text("OFF"), 3: device.Text("OFF")},
			target: 1, value: 0,
			want: `{"device1":0,"device2":0,"device3":0}`,
		},
		{
			name:   "other slots re-asserted",
			values: map[int]device.Value{1: device.Text("on"), 2: device.Int(1), 3: device.Text("1")},
			target: 2, value: 0,
			want: `{"device1":1,"device2":0,"device3":1}`,
		},
		{
			name:   "missing endpoints encode as zero",
			values: map[int]device.Value{1: device.Text("ON")},
			target: 3, value: 1,
			want: `{"device1":1,"device2":0,"device3":1}`,
		},
		{
			name:   "non switch values are zero",
			values: map[int]device.Value{1: device.Float(23.5), 2: device.Text("dim"), 3: device.Value{}},
			target: 9, value: 1,
			want: `{"device1":0,"device2":0,"device3":0}`,
		},
		{
			name:   "set value passes through",
			values: map[int]device.Value{1: device.Text("OFF")},
			target: 1, value: 7,
			want: `{"device1":7,"device2":0,"device3":0}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.BuildCompositePayload(deviceWith(tt.values), tt.target, tt.value)
			if got.String() != tt.want {
				t.Errorf("BuildCompositePayload() = %s, want %s", got, tt.want)
			}
		})
	}
}

// Every slot other than the target carries the stored bit of its endpoint.
func TestBuildCompositePayload_SlotProperty(t *testing.T) {
	c := Default()
	states := []device.Value{device.Text("ON"), device.Text("OFF"), device.Int(1), device.Int(0), device.Text("1"), device.Value{}}

	for _, s1 := range states {
		for _, s2 := range states {
			for _, s3 := range states {
				dev := deviceWith(map[int]device.Value{1: s1, 2: s2, 3: s3})
				for target := 1; target <= 3; target++ {
					for _, v := range []int{0, 1} {
						got := c.BuildCompositePayload(dev, target, v)
						for slot := 1; slot <= 3; slot++ {
							want := v
							if slot != target {
								ep, _ := dev.Endpoint(slot)
								want = ep.Value.Bit()
							}
							if bit, _ := got.Get(slot); bit != want {
								t.Fatalf("%v/%v/%v target=%d v=%d: slot %d = %d, want %d",
									s1, s2, s3, target, v, slot, bit, want)
							}
						}
					}
				}
			}
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := Default()
	dev := deviceWith(map[int]device.Value{1: device.Text("ON"), 2: device.Text("OFF"), 3: device.Text("ON")})

	for target := 1; target <= 3; target++ {
		for _, v := range []int{0, 1} {
			payload := c.BuildCompositePayload(dev, target, v).Bytes()
			deltas, err := c.Decode(ControlEcho, payload)
			if err != nil {
				t.Fatalf("Decode(%s) error = %v", payload, err)
			}
			found := false
			for _, d := range deltas {
				if d.EndpointID == target {
					found = true
					if d.Value.Bit() != v {
						t.Errorf("target %d: decoded %v, encoded %d", target, d.Value, v)
					}
				}
			}
			if !found {
				t.Errorf("target %d missing from %v", target, deltas)
			}
		}
	}
}

func TestCustomSlots(t *testing.T) {
	c, err := New([]int{10, 2, 1}, 4)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	got := c.BuildCompositePayload(deviceWith(nil), 10, 1)
	if want := `{"device1":0,"device2":0,"device10":1}`; got.String() != want {
		t.Errorf("payload = %s, want %s", got, want)
	}

	for _, slots := range [][]int{nil, {0, 1}, {1, 1}} {
		if _, err := New(slots, 4); !errors.Is(err, ErrInvalidSlots) {
			t.Errorf("New(%v) error = %v, want ErrInvalidSlots", slots, err)
		}
	}
}

func TestDecode(t *testing.T) {
	c := Default()

	tests := []struct {
		name    string
		kind    Kind
		payload string
		want    []Delta
		wantErr bool
	}{
		{
			name:    "keyed echo",
			kind:    ControlEcho,
			payload: `{"device1":1,"device2":0,"device3":1}`,
			want:    []Delta{{1, device.Int(1)}, {2, device.Int(0)}, {3, device.Int(1)}},
		},
		{
			name:    "keyed echo skips bad suffixes",
			kind:    ControlEcho,
			payload: `{"device1":1,"deviceX":1,"device0":1,"device":1,"other":1}`,
			want:    []Delta{{1, device.Int(1)}},
		},
		{
			name:    "id val",
			kind:    ControlEcho,
			payload: `{"id":2,"val":"ON"}`,
			want:    []Delta{{2, device.Text("ON")}},
		},
		{
			name:    "id as string",
			kind:    SensorStatus,
			payload: `{"id":"4","val":27.5}`,
			want:    []Delta{{4, device.Float(27.5)}},
		},
		{
			name:    "missing val",
			kind:    ControlEcho,
			payload: `{"id":2}`,
			wantErr: true,
		},
		{
			name:    "null val",
			kind:    SensorStatus,
			payload: `{"id":2,"val":null}`,
			wantErr: true,
		},
		{
			name:    "non numeric id",
			kind:    ControlEcho,
			payload: `{"id":"lamp","val":1}`,
			wantErr: true,
		},
		{
			name:    "echo not json",
			kind:    ControlEcho,
			payload: `ON`,
			wantErr: true,
		},
		{
			name:    "echo without endpoints",
			kind:    ControlEcho,
			payload: `{"foo":1}`,
			wantErr: true,
		},
		{
			name:    "sensor scalar",
			kind:    SensorStatus,
			payload: `26.4`,
			want:    []Delta{{4, device.Float(26.4)}},
		},
		{
			name:    "sensor raw text",
			kind:    SensorStatus,
			payload: `motion detected`,
			want:    []Delta{{4, device.Text("motion detected")}},
		},
		{
			name:    "sensor object kept as text",
			kind:    SensorStatus,
			payload: `{"temp": 25, "hum": 60}`,
			want:    []Delta{{4, device.Text(`{"temp":25,"hum":60}`)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Decode(tt.kind, []byte(tt.payload))
			if tt.wantErr {
				if !errors.Is(err, apperr.ErrValidation) {
					t.Errorf("Decode() error = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Decode() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i].EndpointID != tt.want[i].EndpointID || !got[i].Value.Equal(tt.want[i].Value) {
					t.Errorf("delta[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
