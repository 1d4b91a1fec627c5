package tgproto

// Ack is the result code carried back to the client in a GenericAck,
// per spec.md §4.D / §7.
type Ack uint32

const (
	AckSuccess Ack = iota
	AckTgAPIException
	AckInvalidArgument
	AckCommandIgnored
	AckRuntimeError
	AckClientError
)

func (a Ack) String() string {
	switch a {
	case AckSuccess:
		return "Success"
	case AckTgAPIException:
		return "TgApiException"
	case AckInvalidArgument:
		return "InvalidArgument"
	case AckCommandIgnored:
		return "CommandIgnored"
	case AckRuntimeError:
		return "RuntimeError"
	case AckClientError:
		return "ClientError"
	default:
		return "Unknown"
	}
}

// errMsgSize is the fixed width of GenericAck.error_msg and a handful of
// other fixed string fields on the wire (spec.md §6).
const errMsgSize = 256

// GenericAck is the universal reply for commands that don't carry a
// typed payload of their own.
type GenericAck struct {
	Result Ack
	Error  string
}

func genericAckSuccess() GenericAck {
	return GenericAck{Result: AckSuccess}
}

func genericAckErr(result Ack, msg string) GenericAck {
	return GenericAck{Result: result, Error: msg}
}
