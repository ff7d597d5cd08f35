package pixelwire

import (
	"encoding/json"
	"log/slog"
	"net"

	"github.com/denisbrodbeck/machineid"
	"github.com/pkg/errors"
	"libdb.so/pixelwire/internal/animate"
	"libdb.so/pixelwire/ledstream"
)

// CommandType identifies a control message.
type CommandType string

const (
	// CommandPulse starts a pulse animation.
	CommandPulse CommandType = "PULSE"
	// CommandDiscover asks the daemon to identify itself.
	CommandDiscover CommandType = "DISCOVER"
	// CommandDiscoverResponse is the reply to CommandDiscover.
	CommandDiscoverResponse CommandType = "DISCOVER_RESPONSE"
)

// Command is the envelope for every control message. Messages are JSON
// datagrams on the daemon's UDP listen address.
type Command struct {
	Type    CommandType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PulsePayload is the payload for CommandPulse. Channel values outside
// [0, 255] are clamped.
type PulsePayload struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
	// PropagationSpeed is how far the pulse edges travel per millisecond.
	// It must be positive.
	PropagationSpeed float64 `json:"propagationSpeed"`
}

// DiscoverResponsePayload is the payload for CommandDiscoverResponse.
type DiscoverResponsePayload struct {
	IP              string `json:"ip"`
	DeviceType      string `json:"deviceType"`
	FirmwareVersion string `json:"firmwareVersion"`
	MachineID       string `json:"machineId,omitempty"`
}

const (
	deviceType      = "pixelwire LED controller"
	firmwareVersion = "2.4.0"
)

// controlHandler interprets control messages for the daemon. It is kept
// free of sockets so the daemon can feed it datagrams from anywhere.
type controlHandler struct {
	logger   *slog.Logger
	engine   *animate.Engine
	identity DiscoverResponsePayload
}

// Handle interprets one control message and returns the reply to send back
// to the sender, or nil if the message needs none. Malformed and unknown
// messages are logged and dropped.
func (h *controlHandler) Handle(msg []byte) []byte {
	var command Command
	if err := json.Unmarshal(msg, &command); err != nil {
		h.logger.Warn(
			"dropping malformed control message",
			"error", err)
		return nil
	}

	switch command.Type {
	case CommandPulse:
		var pulse PulsePayload
		if err := json.Unmarshal(command.Payload, &pulse); err != nil {
			h.logger.Warn(
				"dropping malformed pulse payload",
				"error", err)
			return nil
		}
		if pulse.PropagationSpeed <= 0 {
			h.logger.Warn(
				"dropping pulse with non-positive speed",
				"speed", pulse.PropagationSpeed)
			return nil
		}

		color := ledstream.RGB(
			clampChannel(pulse.R),
			clampChannel(pulse.G),
			clampChannel(pulse.B))

		id := h.engine.Pulse(color, pulse.PropagationSpeed)
		h.logger.Info(
			"started pulse",
			"id", id,
			"color", color,
			"speed", pulse.PropagationSpeed)
		return nil

	case CommandDiscover:
		payload, err := json.Marshal(h.identity)
		if err != nil {
			h.logger.Warn(
				"cannot marshal discovery response",
				"error", err)
			return nil
		}
		reply, err := json.Marshal(Command{
			Type:    CommandDiscoverResponse,
			Payload: payload,
		})
		if err != nil {
			h.logger.Warn(
				"cannot marshal discovery response",
				"error", err)
			return nil
		}
		return reply

	default:
		h.logger.Warn(
			"dropping unknown control command",
			"type", command.Type)
		return nil
	}
}

func clampChannel(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// localIdentity describes this daemon for discovery replies. Fields that
// cannot be determined are left empty.
func localIdentity(logger *slog.Logger) DiscoverResponsePayload {
	identity := DiscoverResponsePayload{
		DeviceType:      deviceType,
		FirmwareVersion: firmwareVersion,
	}

	ip, err := findLocalIP()
	if err != nil {
		logger.Warn("cannot determine local IP for discovery", "error", err)
	} else {
		identity.IP = ip
	}

	machineID, err := machineid.ID()
	if err != nil {
		logger.Warn("cannot determine machine ID for discovery", "error", err)
	} else {
		identity.MachineID = machineID
	}

	return identity
}

// findLocalIP returns the machine's IPv4 address, preferring private
// (LAN) addresses over anything else.
func findLocalIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}

	var fallback string
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		ip := ipnet.IP.To4()
		if ip == nil {
			continue
		}
		if ip.IsPrivate() {
			return ip.String(), nil
		}
		if fallback == "" {
			fallback = ip.String()
		}
	}

	if fallback == "" {
		return "", errors.New("no suitable non-loopback IPv4 address")
	}
	return fallback, nil
}
