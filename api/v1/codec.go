package v1

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
)

// CodecName is the gRPC content-subtype used by the ControlService.
const CodecName = "cbor"

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	// Identical messages always encode to identical bytes.
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor: building encoder: %v", err))
	}
	decMode, err = cbor.DecOptions{
		MaxNestedLevels:  32,
		MaxArrayElements: 1 << 16,
		MaxMapPairs:      1 << 16,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cbor: building decoder: %v", err))
	}

	encoding.RegisterCodec(Codec{})
}

// Codec is a gRPC codec that encodes plain Go messages as CBOR and falls back
// to protobuf for proto.Message values such as emptypb.Empty.
type Codec struct{}

var _ encoding.Codec = Codec{}

func (Codec) Name() string { return CodecName }

func (Codec) Marshal(v any) ([]byte, error) {
	if m, ok := v.(proto.Message); ok {
		return proto.Marshal(m)
	}
	return encMode.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	if m, ok := v.(proto.Message); ok {
		return proto.Unmarshal(data, m)
	}
	return decMode.Unmarshal(data, v)
}

// Marshal encodes v with the wire codec.
func Marshal(v any) ([]byte, error) { return Codec{}.Marshal(v) }

// Unmarshal decodes data produced by Marshal.
func Unmarshal(data []byte, v any) error { return Codec{}.Unmarshal(data, v) }
