package tgproto

import (
	"encoding/json"
	"fmt"
)

// decodePayload decodes p.Payload into the command-specific struct. For
// Binary payloads this follows the fixed C-layout described in spec.md
// §6; for JSON payloads it unmarshals the (possibly body-split) object.
// Commands that carry an inline file body (upload side of a transfer)
// return the raw body bytes as the second value.
func decodePayload(p Packet) (interface{}, []byte, error) {
	switch p.PayloadType {
	case PayloadBinary:
		return decodeBinaryPayloadWithBody(p.Command, p.Payload)
	case PayloadJSON:
		return decodeJSONPayload(p.Command, p.Payload)
	default:
		return nil, nil, fmt.Errorf("%w: unknown payload type", ErrProtocol)
	}
}

// fileTransferMetaBinarySize is the fixed-layout portion of
// FileTransferMeta; anything beyond it in a binary TRANSFER_FILE or
// TRANSFER_FILE_REQUEST payload is the attached file body (spec.md
// §4.A), mirroring how the JSON path splits on JSONByteBorder.
const fileTransferMetaBinarySize = MaxPath + MaxPath + 3 + 32

// decodeBinaryPayloadWithBody wraps decodeBinaryPayload, additionally
// splitting off a trailing file body for the two commands that carry
// one on the wire (TRANSFER_FILE as a direct client push, and as the
// server's small-file reply to TRANSFER_FILE_REQUEST).
func decodeBinaryPayloadWithBody(cmd Command, b []byte) (interface{}, []byte, error) {
	switch cmd {
	case CmdTransferFile, CmdTransferFileRequest:
		if len(b) < fileTransferMetaBinarySize {
			return nil, nil, fmt.Errorf("%w: FileTransferMeta too short %d, want at least %d",
				ErrProtocol, len(b), fileTransferMetaBinarySize)
		}

		v, err := decodeFileTransferMetaBinary(b[:fileTransferMetaBinarySize])
		if err != nil {
			return nil, nil, err
		}

		var body []byte
		if len(b) > fileTransferMetaBinarySize {
			body = b[fileTransferMetaBinarySize:]
		}

		return v, body, nil
	default:
		v, err := decodeBinaryPayload(cmd, b)
		return v, nil, err
	}
}

func decodeBinaryPayload(cmd Command, b []byte) (interface{}, error) {
	switch cmd {
	case CmdWriteMsgToChatID:
		return decodeWriteMsgToChatIDBinary(b)
	case CmdObserveChatID:
		return decodeObserveChatIDBinary(b)
	case CmdObserveAllChats:
		return decodeObserveAllChatsBinary(b)
	case CmdCtrlSpamBlock:
		return decodeCtrlSpamBlockBinary(b)
	case CmdSendFileToChatID:
		return decodeSendFileToChatIDBinary(b)
	case CmdTransferFile, CmdTransferFileRequest:
		return decodeFileTransferMetaBinary(b)
	case CmdTransferFileBegin:
		return decodeFileTransferBeginBinary(b)
	case CmdTransferFileChunk:
		return decodeFileTransferChunkBinary(b)
	case CmdTransferFileChunkResponse:
		return decodeFileTransferChunkResponseBinary(b)
	case CmdTransferFileEnd:
		return decodeFileTransferEndBinary(b)
	case CmdGetUptimeCallback:
		return decodeGetUptimeCallbackBinary(b)
	case CmdGenericAck:
		return decodeGenericAckBinary(b)
	case CmdOpenSession, CmdCloseSession, CmdGetUptime:
		if len(b) != 0 {
			return nil, fmt.Errorf("%w: %s takes an empty payload", ErrProtocol, cmd)
		}

		return nil, nil
	default:
		return nil, fmt.Errorf("%w: no binary decoder registered for %s", ErrProtocol, cmd)
	}
}

func decodeJSONPayload(cmd Command, payload []byte) (interface{}, []byte, error) {
	object, body, hasBody := splitJSONBody(payload)

	var v interface{}

	switch cmd {
	case CmdWriteMsgToChatID:
		v = &WriteMsgToChatID{}
	case CmdObserveChatID:
		v = &ObserveChatID{}
	case CmdObserveAllChats:
		v = &ObserveAllChats{}
	case CmdCtrlSpamBlock:
		v = &CtrlSpamBlock{}
	case CmdSendFileToChatID:
		v = &SendFileToChatID{}
	case CmdTransferFile, CmdTransferFileRequest:
		v = &jsonFileTransferMeta{}
	case CmdTransferFileBegin:
		v = &jsonFileTransferBegin{}
	case CmdTransferFileChunk:
		v = &jsonFileTransferChunk{}
	case CmdTransferFileChunkResponse:
		v = &FileTransferChunkResponse{}
	case CmdTransferFileEnd:
		v = &FileTransferEnd{}
	case CmdGetUptimeCallback:
		v = &GetUptimeCallback{}
	case CmdGenericAck:
		v = &GenericAck{}
	case CmdOpenSessionAck:
		v = &OpenSessionAck{}
	case CmdOpenSession, CmdCloseSession, CmdGetUptime:
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: no json decoder registered for %s", ErrProtocol, cmd)
	}

	if err := json.Unmarshal(object, v); err != nil {
		return nil, nil, fmt.Errorf("%w: cannot decode json payload for %s: %v", ErrProtocol, cmd, err)
	}

	if !hasBody {
		body = nil
	}

	switch typed := v.(type) {
	case *jsonFileTransferMeta:
		return typed.toMeta(), body, nil
	case *jsonFileTransferBegin:
		return typed.toBegin(), body, nil
	case *jsonFileTransferChunk:
		return typed.toChunk(body), body, nil
	}

	return v, body, nil
}

// jsonFileTransferMeta etc. mirror the binary structs with JSON field
// names and a hex-encoded hash, per spec.md §6 ("hashes are lowercase
// hex").
type jsonFileTransferMeta struct {
	Src        string `json:"src"`
	Dst        string `json:"dst"`
	Overwrite  bool   `json:"overwrite"`
	HashIgnore bool   `json:"hash_ignore"`
	DryRun     bool   `json:"dry_run"`
	Hash       string `json:"hash"`
}

func (j *jsonFileTransferMeta) toMeta() FileTransferMeta {
	return FileTransferMeta{
		Src:        j.Src,
		Dst:        j.Dst,
		Overwrite:  j.Overwrite,
		HashIgnore: j.HashIgnore,
		DryRun:     j.DryRun,
		Hash:       decodeHexHash(j.Hash),
	}
}

type jsonFileTransferBegin struct {
	Dst       string `json:"dst"`
	TotalSize uint64 `json:"total_size"`
	ChunkSize uint32 `json:"chunk_size"`
	Hash      string `json:"hash"`
}

func (j *jsonFileTransferBegin) toBegin() FileTransferBegin {
	return FileTransferBegin{
		Dst:       j.Dst,
		TotalSize: j.TotalSize,
		ChunkSize: j.ChunkSize,
		Hash:      decodeHexHash(j.Hash),
	}
}

type jsonFileTransferChunk struct {
	Index         uint32 `json:"chunk_index"`
	ChunkDataSize uint32 `json:"chunk_data_size"`
}

func (j *jsonFileTransferChunk) toChunk(body []byte) FileTransferChunk {
	return FileTransferChunk{Index: j.Index, Data: body}
}

func decodeHexHash(s string) [32]byte {
	var out [32]byte

	b, err := hexDecode(s)
	if err == nil {
		copy(out[:], b)
	}

	return out
}
