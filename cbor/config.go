package cbor

import (
	"github.com/fxamacker/cbor/v2"
)

// CBORConfig provides the properties necessary to configure cbor encoding
// and decoding of stored values
type CBORConfig struct {
	EncMode cbor.EncMode
	DecMode cbor.DecMode
}

// NewDeterministicEncOpts sorts map keys and forbids indefinite lengths so
// equal values encode to equal bytes.
func NewDeterministicEncOpts() cbor.EncOptions {
	return cbor.EncOptions{
		Sort:        cbor.SortCoreDeterministic,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}
}

// NewDeterministicDecOpts is used when deterministic input is expected and
// unsigned and signed integers should be decoded to uint64 and int64
// respectively.
func NewDeterministicDecOpts() cbor.DecOptions {
	return cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF, // duplicated key not allowed
		IndefLength: cbor.IndefLengthForbidden, // no streaming
		IntDec:      cbor.IntDecConvertNone,
		TagsMd:      cbor.TagsForbidden,
	}
}

func NewCBORConfig(
	encOpts cbor.EncOptions, decOpts cbor.DecOptions,
) (CBORConfig, error) {

	var err error

	cfg := CBORConfig{}

	if cfg.EncMode, err = encOpts.EncMode(); err != nil {
		return CBORConfig{}, err
	}

	if cfg.DecMode, err = decOpts.DecMode(); err != nil {
		return CBORConfig{}, err
	}
	return cfg, nil
}
