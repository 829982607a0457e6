package discovery

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/windlass-marine/windlass-core/internal/device"
)

// Discovery envelopes are msgpack encoded. The encoding is internal to
// the protocol; bus consumers that are not running discovery treat the
// payloads as opaque bytes.

type announceEnvelope struct {
	Info device.Info `msgpack:"info"`
}

type requestEnvelope struct {
	Filter *Filter `msgpack:"filter,omitempty"`
}

type responseEnvelope struct {
	Info device.Info `msgpack:"info"`
}

func encodeAnnounce(info device.Info) ([]byte, error) {
	return msgpack.Marshal(announceEnvelope{Info: info})
}

func decodeAnnounce(payload []byte) (device.Info, error) {
	var env announceEnvelope
	if err := msgpack.Unmarshal(payload, &env); err != nil {
		return device.Info{}, fmt.Errorf("%w: announce: %v", ErrMalformedMessage, err)
	}
	if env.Info.Address == "" {
		return device.Info{}, fmt.Errorf("%w: announce without address", ErrMalformedMessage)
	}
	return env.Info, nil
}

func encodeRequest(filter *Filter) ([]byte, error) {
	return msgpack.Marshal(requestEnvelope{Filter: filter})
}

func decodeRequest(payload []byte) (*Filter, error) {
	var env requestEnvelope
	if err := msgpack.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: request: %v", ErrMalformedMessage, err)
	}
	return env.Filter, nil
}

func encodeResponse(info device.Info) ([]byte, error) {
	return msgpack.Marshal(responseEnvelope{Info: info})
}

func decodeResponse(payload []byte) (device.Info, error) {
	var env responseEnvelope
	if err := msgpack.Unmarshal(payload, &env); err != nil {
		return device.Info{}, fmt.Errorf("%w: response: %v", ErrMalformedMessage, err)
	}
	if env.Info.Address == "" {
		return device.Info{}, fmt.Errorf("%w: response without address", ErrMalformedMessage)
	}
	return env.Info, nil
}
