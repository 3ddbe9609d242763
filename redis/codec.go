package redis

import (
	"encoding/json"
	"strconv"

	"github.com/datatrails/go-datatrails-typedredis/cbor"
)

// Codec converts typed values to and from the strings stored in redis. Two
// values are the same element of a list or set when their encodings are
// equal, so implementations must be deterministic.
type Codec[T any] interface {
	Encode(value T) (string, error)
	Decode(data string) (T, error)
}

// JSONCodec is the default value codec.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Encode(value T) (string, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (JSONCodec[T]) Decode(data string) (T, error) {
	var value T
	err := json.Unmarshal([]byte(data), &value)
	return value, err
}

// StringCodec stores strings as they are.
type StringCodec struct{}

func (StringCodec) Encode(value string) (string, error) {
	return value, nil
}

func (StringCodec) Decode(data string) (string, error) {
	return data, nil
}

// CBORCodec stores values as deterministic CBOR.
type CBORCodec[T any] struct {
	codec cbor.CBORCodec
}

func NewCBORCodec[T any]() (*CBORCodec[T], error) {
	codec, err := cbor.NewDeterministicCodec()
	if err != nil {
		return nil, err
	}
	return &CBORCodec[T]{codec: codec}, nil
}

func (c *CBORCodec[T]) Encode(value T) (string, error) {
	b, err := c.codec.MarshalCBOR(value)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *CBORCodec[T]) Decode(data string) (T, error) {
	var value T
	err := c.codec.UnmarshalInto([]byte(data), &value)
	return value, err
}

// canonicalCodec is the default hash field codec. Strings and integers are
// stored in their natural form so the fields read well from redis-cli;
// anything else falls back to JSON.
type canonicalCodec[K any] struct{}

func (canonicalCodec[K]) Encode(key K) (string, error) {
	switch k := any(key).(type) {
	case string:
		return k, nil
	case int:
		return strconv.Itoa(k), nil
	case int64:
		return strconv.FormatInt(k, 10), nil
	case int32:
		return strconv.FormatInt(int64(k), 10), nil
	case uint64:
		return strconv.FormatUint(k, 10), nil
	}
	return JSONCodec[K]{}.Encode(key)
}

func (canonicalCodec[K]) Decode(data string) (K, error) {
	var key K
	var err error
	switch p := any(&key).(type) {
	case *string:
		*p = data
	case *int:
		*p, err = strconv.Atoi(data)
	case *int64:
		*p, err = strconv.ParseInt(data, 10, 64)
	case *int32:
		var v int64
		v, err = strconv.ParseInt(data, 10, 32)
		*p = int32(v)
	case *uint64:
		*p, err = strconv.ParseUint(data, 10, 64)
	default:
		return JSONCodec[K]{}.Decode(data)
	}
	return key, err
}
