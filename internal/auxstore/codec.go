package auxstore

import "encoding/json"

// jsonCodec lets the auxstore RPC ride google.golang.org/grpc's transport
// (framing, flow control, deadlines, codes/status) without requiring a
// protoc-generated message type for a single-method service — grpc's
// encoding.Codec interface is built exactly for swapping the wire format,
// and JSON keeps the request/response types plain Go structs.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return "json"
}
