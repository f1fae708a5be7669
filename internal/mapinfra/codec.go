package mapinfra

import (
	"github.com/vmihailenco/msgpack/v5"
)

// codec turns keys and values into the binary form kept by remote backends and used for
// partition routing.
type codec[K comparable, V any] struct{}

func (codec[K, V]) encodeKey(key K) ([]byte, error) {
	return msgpack.Marshal(key)
}

func (codec[K, V]) decodeKey(data []byte) (K, error) {
	var key K
	err := msgpack.Unmarshal(data, &key)
	return key, err
}

func (codec[K, V]) encodeValue(value V) ([]byte, error) {
	return msgpack.Marshal(value)
}

func (codec[K, V]) decodeValue(data []byte) (V, error) {
	var value V
	err := msgpack.Unmarshal(data, &value)
	return value, err
}
