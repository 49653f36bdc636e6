package config

import (
	"context"
	"encoding/json"
	"errors"

	"dshot-go/bus"
	"dshot-go/types"
)

// -----------------------------------------------------------------------------
// String constants (live in flash, not RAM)
// -----------------------------------------------------------------------------

const (
	serviceName  = "config"
	configPrefix = "config"
)

type ctxKey string

// CtxDeviceKey is the context key carrying the device ID.
const CtxDeviceKey ctxKey = "device"

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// publishConfig reads the device config from embedded data and publishes
// each top-level key retained on config/<key>. Keys with a known schema are
// published as their typed value; the rest as decoded JSON.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return errors.New("missing device ID in context")
	}

	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return errors.New("no embedded config for device: " + device)
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return errors.New("embedded config is not a JSON object: " + err.Error())
	}

	for k, v := range m {
		val, err := decodeKey(k, v)
		if err != nil {
			println("[config]", "skip", k+":", err.Error())
			continue
		}
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), val, true))
	}
	return nil
}

func decodeKey(key string, raw json.RawMessage) (any, error) {
	switch key {
	case "motors":
		var c types.MotorsConfig
		err := json.Unmarshal(raw, &c)
		return c, err
	case "heartbeat":
		var c types.HeartbeatConfig
		err := json.Unmarshal(raw, &c)
		return c, err
	default:
		var v any
		err := json.Unmarshal(raw, &v)
		return v, err
	}
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			println("[config]", err.Error())
		}
	}()
}
