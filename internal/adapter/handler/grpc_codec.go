package handler

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// The gRPC API carries plain JSON messages; clients select it with the
// "json" content-subtype.
const jsonCodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}
