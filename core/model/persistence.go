package model

import (
	"bytes"
	"encoding/gob"
	"io"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(model interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(model); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(model interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(model); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}

// MarshalGob encodes v into a byte slice.
func MarshalGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := SaveModelToWriter(v, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalGob decodes data into v, which must be a pointer.
func UnmarshalGob(data []byte, v interface{}) error {
	return LoadModelFromReader(v, bytes.NewReader(data))
}
