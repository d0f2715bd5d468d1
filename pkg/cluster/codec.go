package cluster

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// jsonCodecName is registered as a grpc content-subtype so this client
// speaks real gRPC framing (length-prefixed messages over HTTP/2,
// interceptors, deadlines) without hand-generated protobuf stubs. A
// protobuf-speaking server pairs this with a matching json-transcoding
// codec on its side; payloads that must interoperate byte-for-byte with
// protobuf still use protobuf's well-known types (durationpb,
// timestamppb) for duration/timestamp fields.
const jsonCodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return jsonCodecName }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cluster: json codec marshal: %w", err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("cluster: json codec unmarshal: %w", err)
	}
	return nil
}
