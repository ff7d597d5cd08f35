package pixelwire

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"libdb.so/pixelwire/internal/animate"
	"libdb.so/pixelwire/ledstream"
)

func newTestHandler(t *testing.T) *controlHandler {
	t.Helper()

	engine, err := animate.NewEngine(4, 2, 3)
	require.NoError(t, err)

	return &controlHandler{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		engine: engine,
		identity: DiscoverResponsePayload{
			IP:              "192.0.2.10",
			DeviceType:      deviceType,
			FirmwareVersion: firmwareVersion,
			MachineID:       "machine-1",
		},
	}
}

func TestControlPulse(t *testing.T) {
	h := newTestHandler(t)

	reply := h.Handle([]byte(`{"type":"PULSE","payload":{"r":300,"g":-5,"b":40,"propagationSpeed":0.001}}`))
	require.Nil(t, reply)
	require.Equal(t, 1, h.engine.ActivePulses())

	// The channel values land clamped on the middle pixels.
	h.engine.Advance(time.Now())
	got := ledstream.NewStrip(8)
	h.engine.Snapshot(got)
	require.Equal(t, ledstream.RGB(255, 0, 40), got[2])
	require.Equal(t, ledstream.RGB(255, 0, 40), got[6])
}

func TestControlPulseDropped(t *testing.T) {
	tests := []struct {
		name string
		msg  string
	}{
		{"zero speed", `{"type":"PULSE","payload":{"r":1,"g":2,"b":3,"propagationSpeed":0}}`},
		{"negative speed", `{"type":"PULSE","payload":{"r":1,"g":2,"b":3,"propagationSpeed":-1}}`},
		{"bad payload", `{"type":"PULSE","payload":"nope"}`},
		{"no payload", `{"type":"PULSE"}`},
		{"not json", `pulse please`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			h := newTestHandler(t)
			require.Nil(t, h.Handle([]byte(test.msg)))
			require.Equal(t, 0, h.engine.ActivePulses())
		})
	}
}

func TestControlDiscover(t *testing.T) {
	h := newTestHandler(t)

	reply := h.Handle([]byte(`{"type":"DISCOVER"}`))
	require.NotNil(t, reply)

	var command Command
	require.NoError(t, json.Unmarshal(reply, &command))
	require.Equal(t, CommandDiscoverResponse, command.Type)

	var payload DiscoverResponsePayload
	require.NoError(t, json.Unmarshal(command.Payload, &payload))
	require.Equal(t, h.identity, payload)
}

func TestControlUnknownCommand(t *testing.T) {
	h := newTestHandler(t)
	require.Nil(t, h.Handle([]byte(`{"type":"REBOOT"}`)))
}

func TestClampChannel(t *testing.T) {
	require.Equal(t, uint8(0), clampChannel(-1))
	require.Equal(t, uint8(0), clampChannel(0))
	require.Equal(t, uint8(128), clampChannel(128))
	require.Equal(t, uint8(255), clampChannel(255))
	require.Equal(t, uint8(255), clampChannel(999))
}

func TestLocalIdentity(t *testing.T) {
	identity := localIdentity(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Equal(t, deviceType, identity.DeviceType)
	require.Equal(t, firmwareVersion, identity.FirmwareVersion)
}
