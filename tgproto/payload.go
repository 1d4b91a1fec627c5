package tgproto

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// FileType selects which Bot API send* method SEND_FILE_TO_CHAT_ID maps
// onto (spec.md §6 bot.sendPhoto/Video/Sticker/Animation/Document/Dice).
type FileType uint8

const (
	FileTypeDocument FileType = iota
	FileTypePhoto
	FileTypeVideo
	FileTypeSticker
	FileTypeAnimation
	FileTypeDice
)

func (f FileType) String() string {
	switch f {
	case FileTypeDocument:
		return "document"
	case FileTypePhoto:
		return "photo"
	case FileTypeVideo:
		return "video"
	case FileTypeSticker:
		return "sticker"
	case FileTypeAnimation:
		return "animation"
	case FileTypeDice:
		return "dice"
	default:
		return fmt.Sprintf("filetype(%d)", uint8(f))
	}
}

// SpamBlockMode is the argument to CTRL_SPAMBLOCK.
type SpamBlockMode uint32

const (
	SpamBlockOff SpamBlockMode = iota
	SpamBlockLogOnly
	SpamBlockDeleteAndMute
	SpamBlockBanSender
)

func (m SpamBlockMode) String() string {
	switch m {
	case SpamBlockOff:
		return "off"
	case SpamBlockLogOnly:
		return "log_only"
	case SpamBlockDeleteAndMute:
		return "delete_and_mute"
	case SpamBlockBanSender:
		return "ban_sender"
	default:
		return fmt.Sprintf("spamblock(%d)", uint32(m))
	}
}

// --- WRITE_MSG_TO_CHAT_ID --------------------------------------------

const writeMsgMessageSize = 256

type WriteMsgToChatID struct {
	ChatID  int64
	Message string
}

func (p WriteMsgToChatID) encodeBinary() []byte {
	buf := make([]byte, 8+writeMsgMessageSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(p.ChatID))
	putFixedString(buf[8:8+writeMsgMessageSize], p.Message, writeMsgMessageSize) //nolint: errcheck

	return buf
}

func decodeWriteMsgToChatIDBinary(b []byte) (WriteMsgToChatID, error) {
	if len(b) != 8+writeMsgMessageSize {
		return WriteMsgToChatID{}, fmt.Errorf("%w: WriteMsgToChatId wrong size %d", ErrProtocol, len(b))
	}

	msg, err := getFixedString(b[8 : 8+writeMsgMessageSize])
	if err != nil {
		return WriteMsgToChatID{}, err
	}

	return WriteMsgToChatID{
		ChatID:  int64(binary.LittleEndian.Uint64(b[0:8])),
		Message: msg,
	}, nil
}

// --- OBSERVE_CHAT_ID ---------------------------------------------------

type ObserveChatID struct {
	ChatID  int64
	Observe bool
}

func (p ObserveChatID) encodeBinary() []byte {
	buf := make([]byte, 9)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(p.ChatID))
	buf[8] = boolByte(p.Observe)

	return buf
}

func decodeObserveChatIDBinary(b []byte) (ObserveChatID, error) {
	if len(b) != 9 {
		return ObserveChatID{}, fmt.Errorf("%w: ObserveChatId wrong size %d", ErrProtocol, len(b))
	}

	return ObserveChatID{
		ChatID:  int64(binary.LittleEndian.Uint64(b[0:8])),
		Observe: b[8] != 0,
	}, nil
}

// --- OBSERVE_ALL_CHATS ---------------------------------------------------

type ObserveAllChats struct {
	Observe bool
}

func (p ObserveAllChats) encodeBinary() []byte {
	return []byte{boolByte(p.Observe)}
}

func decodeObserveAllChatsBinary(b []byte) (ObserveAllChats, error) {
	if len(b) != 1 {
		return ObserveAllChats{}, fmt.Errorf("%w: ObserveAllChats wrong size %d", ErrProtocol, len(b))
	}

	return ObserveAllChats{Observe: b[0] != 0}, nil
}

// --- CTRL_SPAMBLOCK ---------------------------------------------------

type CtrlSpamBlock struct {
	Mode SpamBlockMode
}

func (p CtrlSpamBlock) encodeBinary() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(p.Mode))

	return buf
}

func decodeCtrlSpamBlockBinary(b []byte) (CtrlSpamBlock, error) {
	if len(b) != 4 {
		return CtrlSpamBlock{}, fmt.Errorf("%w: CtrlSpamBlock wrong size %d", ErrProtocol, len(b))
	}

	return CtrlSpamBlock{Mode: SpamBlockMode(binary.LittleEndian.Uint32(b))}, nil
}

// --- SEND_FILE_TO_CHAT_ID ---------------------------------------------

type SendFileToChatID struct {
	ChatID   int64
	FileType FileType
	Path     string
}

func (p SendFileToChatID) encodeBinary() []byte {
	buf := make([]byte, 8+1+MaxPath)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(p.ChatID))
	buf[8] = byte(p.FileType)
	putFixedString(buf[9:9+MaxPath], p.Path, MaxPath) //nolint: errcheck

	return buf
}

func decodeSendFileToChatIDBinary(b []byte) (SendFileToChatID, error) {
	if len(b) != 8+1+MaxPath {
		return SendFileToChatID{}, fmt.Errorf("%w: SendFileToChatId wrong size %d", ErrProtocol, len(b))
	}

	path, err := getFixedString(b[9 : 9+MaxPath])
	if err != nil {
		return SendFileToChatID{}, err
	}

	return SendFileToChatID{
		ChatID:   int64(binary.LittleEndian.Uint64(b[0:8])),
		FileType: FileType(b[8]),
		Path:     path,
	}, nil
}

// --- TRANSFER_FILE / TRANSFER_FILE_REQUEST -----------------------------

// FileTransferMeta is the "dry" request used by TRANSFER_FILE_REQUEST and
// the header fields of the legacy single-packet TRANSFER_FILE.
type FileTransferMeta struct {
	Src          string
	Dst          string
	Overwrite    bool
	HashIgnore   bool
	DryRun       bool
	Hash         [32]byte
}

func (p FileTransferMeta) encodeBinary() []byte {
	buf := make([]byte, MaxPath+MaxPath+3+32)
	putFixedString(buf[0:MaxPath], p.Src, MaxPath)             //nolint: errcheck
	putFixedString(buf[MaxPath:2*MaxPath], p.Dst, MaxPath)     //nolint: errcheck
	buf[2*MaxPath] = boolByte(p.Overwrite)
	buf[2*MaxPath+1] = boolByte(p.HashIgnore)
	buf[2*MaxPath+2] = boolByte(p.DryRun)
	copy(buf[2*MaxPath+3:2*MaxPath+3+32], p.Hash[:])

	return buf
}

func decodeFileTransferMetaBinary(b []byte) (FileTransferMeta, error) {
	want := MaxPath + MaxPath + 3 + 32
	if len(b) != want {
		return FileTransferMeta{}, fmt.Errorf("%w: FileTransferMeta wrong size %d, want %d", ErrProtocol, len(b), want)
	}

	src, err := getFixedString(b[0:MaxPath])
	if err != nil {
		return FileTransferMeta{}, err
	}

	dst, err := getFixedString(b[MaxPath : 2*MaxPath])
	if err != nil {
		return FileTransferMeta{}, err
	}

	var hash [32]byte
	copy(hash[:], b[2*MaxPath+3:2*MaxPath+3+32])

	return FileTransferMeta{
		Src:        src,
		Dst:        dst,
		Overwrite:  b[2*MaxPath] != 0,
		HashIgnore: b[2*MaxPath+1] != 0,
		DryRun:     b[2*MaxPath+2] != 0,
		Hash:       hash,
	}, nil
}

// --- TRANSFER_FILE_BEGIN ------------------------------------------------

type FileTransferBegin struct {
	Dst       string
	TotalSize uint64
	ChunkSize uint32
	Hash      [32]byte
}

func (p FileTransferBegin) encodeBinary() []byte {
	buf := make([]byte, MaxPath+8+4+32)
	putFixedString(buf[0:MaxPath], p.Dst, MaxPath) //nolint: errcheck
	binary.LittleEndian.PutUint64(buf[MaxPath:MaxPath+8], p.TotalSize)
	binary.LittleEndian.PutUint32(buf[MaxPath+8:MaxPath+12], p.ChunkSize)
	copy(buf[MaxPath+12:MaxPath+12+32], p.Hash[:])

	return buf
}

func decodeFileTransferBeginBinary(b []byte) (FileTransferBegin, error) {
	want := MaxPath + 8 + 4 + 32
	if len(b) != want {
		return FileTransferBegin{}, fmt.Errorf("%w: FileTransferBegin wrong size %d, want %d", ErrProtocol, len(b), want)
	}

	dst, err := getFixedString(b[0:MaxPath])
	if err != nil {
		return FileTransferBegin{}, err
	}

	var hash [32]byte
	copy(hash[:], b[MaxPath+12:MaxPath+12+32])

	return FileTransferBegin{
		Dst:       dst,
		TotalSize: binary.LittleEndian.Uint64(b[MaxPath : MaxPath+8]),
		ChunkSize: binary.LittleEndian.Uint32(b[MaxPath+8 : MaxPath+12]),
		Hash:      hash,
	}, nil
}

// --- TRANSFER_FILE_CHUNK -------------------------------------------------

type FileTransferChunk struct {
	Index uint32
	Data  []byte
}

func (p FileTransferChunk) encodeBinary() []byte {
	buf := make([]byte, 8+len(p.Data))
	binary.LittleEndian.PutUint32(buf[0:4], p.Index)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(p.Data)))
	copy(buf[8:], p.Data)

	return buf
}

func decodeFileTransferChunkBinary(b []byte) (FileTransferChunk, error) {
	if len(b) < 8 {
		return FileTransferChunk{}, fmt.Errorf("%w: FileTransferChunk too short %d", ErrProtocol, len(b))
	}

	index := binary.LittleEndian.Uint32(b[0:4])
	size := binary.LittleEndian.Uint32(b[4:8])

	if int(size) != len(b)-8 {
		return FileTransferChunk{}, fmt.Errorf("%w: FileTransferChunk declares size %d but carries %d bytes",
			ErrProtocol, size, len(b)-8)
	}

	data := make([]byte, size)
	copy(data, b[8:])

	return FileTransferChunk{Index: index, Data: data}, nil
}

// --- TRANSFER_FILE_CHUNK_RESPONSE --------------------------------------

type FileTransferChunkResponse struct {
	Index int64
	OK    bool
	Error string
}

func (p FileTransferChunkResponse) encodeBinary() []byte {
	buf := make([]byte, 4+1+errMsgSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(p.Index))
	buf[4] = boolByte(p.OK)
	putFixedString(buf[5:5+errMsgSize], p.Error, errMsgSize) //nolint: errcheck

	return buf
}

func decodeFileTransferChunkResponseBinary(b []byte) (FileTransferChunkResponse, error) {
	want := 4 + 1 + errMsgSize
	if len(b) != want {
		return FileTransferChunkResponse{}, fmt.Errorf("%w: FileTransferChunkResponse wrong size %d", ErrProtocol, len(b))
	}

	errMsg, err := getFixedString(b[5 : 5+errMsgSize])
	if err != nil {
		return FileTransferChunkResponse{}, err
	}

	return FileTransferChunkResponse{
		Index: int64(binary.LittleEndian.Uint32(b[0:4])),
		OK:    b[4] != 0,
		Error: errMsg,
	}, nil
}

// --- TRANSFER_FILE_END ---------------------------------------------------

type FileTransferEnd struct {
	VerifyHash bool
}

func (p FileTransferEnd) encodeBinary() []byte {
	return []byte{boolByte(p.VerifyHash)}
}

func decodeFileTransferEndBinary(b []byte) (FileTransferEnd, error) {
	if len(b) != 1 {
		return FileTransferEnd{}, fmt.Errorf("%w: FileTransferEnd wrong size %d", ErrProtocol, len(b))
	}

	return FileTransferEnd{VerifyHash: b[0] != 0}, nil
}

// --- GET_UPTIME_CALLBACK -------------------------------------------------

const uptimeStringSize = 64

type GetUptimeCallback struct {
	Uptime string
}

func (p GetUptimeCallback) encodeBinary() []byte {
	buf := make([]byte, uptimeStringSize)
	putFixedString(buf, p.Uptime, uptimeStringSize) //nolint: errcheck

	return buf
}

func decodeGetUptimeCallbackBinary(b []byte) (GetUptimeCallback, error) {
	if len(b) != uptimeStringSize {
		return GetUptimeCallback{}, fmt.Errorf("%w: GetUptimeCallback wrong size %d", ErrProtocol, len(b))
	}

	s, err := getFixedString(b)
	if err != nil {
		return GetUptimeCallback{}, err
	}

	return GetUptimeCallback{Uptime: s}, nil
}

// --- GENERIC_ACK ----------------------------------------------------------

func (p GenericAck) encodeBinary() []byte {
	buf := make([]byte, 4+errMsgSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(p.Result))
	putFixedString(buf[4:4+errMsgSize], p.Error, errMsgSize) //nolint: errcheck

	return buf
}

func decodeGenericAckBinary(b []byte) (GenericAck, error) {
	want := 4 + errMsgSize
	if len(b) != want {
		return GenericAck{}, fmt.Errorf("%w: GenericAck wrong size %d", ErrProtocol, len(b))
	}

	errMsg, err := getFixedString(b[4 : 4+errMsgSize])
	if err != nil {
		return GenericAck{}, err
	}

	return GenericAck{
		Result: Ack(binary.LittleEndian.Uint32(b[0:4])),
		Error:  errMsg,
	}, nil
}

// --- OPEN_SESSION_ACK (JSON-only) -----------------------------------------

type OpenSessionAck struct {
	SessionToken   string `json:"session_token"`
	ExpirationTime int64  `json:"expiration_time"`
}

func boolByte(b bool) byte {
	if b {
		return 1
	}

	return 0
}

// splitJSONBody scans payload for the first JSONByteBorder byte, per
// spec.md §4.A / §8: everything before it is the JSON object, everything
// after is the raw attached file body. The border byte itself is
// consumed. ok is false if no border is present (no attached body).
func splitJSONBody(payload []byte) (object, body []byte, ok bool) {
	for i, b := range payload {
		if b == JSONByteBorder {
			return payload[:i], payload[i+1:], true
		}
	}

	return payload, nil, false
}

func encodeJSON(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cannot encode json payload: %w", err)
	}

	return b, nil
}
