package tgproto

import "fmt"

// encodeReply serializes v (plus an optional attached body, for file
// pushes) as payloadType, matching the request's encoding so a client
// always gets replies in the format it asked in.
func encodeReply(payloadType PayloadType, v interface{}, body []byte) ([]byte, error) {
	switch payloadType {
	case PayloadBinary:
		return encodeBinaryReply(v, body)
	case PayloadJSON:
		return encodeJSONReply(v, body)
	default:
		return nil, fmt.Errorf("%w: unknown payload type", ErrProtocol)
	}
}

type binaryEncodable interface {
	encodeBinary() []byte
}

func encodeBinaryReply(v interface{}, body []byte) ([]byte, error) {
	if v == nil {
		return body, nil
	}

	enc, ok := v.(binaryEncodable)
	if !ok {
		return nil, fmt.Errorf("tgproto: %T has no binary encoding", v)
	}

	return append(enc.encodeBinary(), body...), nil
}

func encodeJSONReply(v interface{}, body []byte) ([]byte, error) {
	var object interface{} = v

	switch typed := v.(type) {
	case FileTransferMeta:
		object = jsonFileTransferMeta{
			Src: typed.Src, Dst: typed.Dst,
			Overwrite: typed.Overwrite, HashIgnore: typed.HashIgnore, DryRun: typed.DryRun,
			Hash: hexEncode(typed.Hash[:]),
		}
	case FileTransferBegin:
		object = jsonFileTransferBegin{
			Dst: typed.Dst, TotalSize: typed.TotalSize, ChunkSize: typed.ChunkSize,
			Hash: hexEncode(typed.Hash[:]),
		}
	case FileTransferChunk:
		object = jsonFileTransferChunk{Index: typed.Index, ChunkDataSize: uint32(len(typed.Data))}
		body = typed.Data
	}

	if v == nil {
		return nil, nil
	}

	payload, err := encodeJSON(object)
	if err != nil {
		return nil, err
	}

	if len(body) == 0 {
		return payload, nil
	}

	out := make([]byte, 0, len(payload)+1+len(body))
	out = append(out, payload...)
	out = append(out, JSONByteBorder)
	out = append(out, body...)

	return out, nil
}
