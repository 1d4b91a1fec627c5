package stats

// Tag* are the label keys attached to streamInfo and used across the
// Prometheus vectors below.
const (
	TagIPFamily = "ip_family"
	TagCommand  = "command"
	TagResult   = "result"
	TagReason   = "reason"
	TagIPList   = "ip_list"
	TagDirection = "direction"

	TagIPFamilyIPv4 = "ipv4"
	TagIPFamilyIPv6 = "ipv6"

	TagIPListBlock = "block"
	TagIPListAllow = "allow"

	TagDirectionRead  = "read"
	TagDirectionWrite = "write"
)

// Metric* are the Prometheus metric names registered by NewPrometheus,
// named the way the teacher names its own (snake_case, no namespace
// prefix baked in - that comes from metricPrefix at registration time).
const (
	MetricConnections       = "connections"
	MetricSessionsOpened    = "sessions_opened_total"
	MetricSessionsClosed    = "sessions_closed_total"
	MetricSessionDuration   = "session_duration_seconds"
	MetricCommands          = "commands_total"
	MetricCommandDuration   = "command_duration_seconds"
	MetricTransfersBegin    = "transfers_begin_total"
	MetricTransferChunks    = "transfer_chunks_total"
	MetricTransfersEnd      = "transfers_end_total"
	MetricTransfersAborted  = "transfers_aborted_total"
	MetricReplayAttacks     = "replay_attacks_total"
	MetricRateLimited       = "rate_limited_total"
	MetricIPBlocked         = "ip_blocked_total"
	MetricTraffic           = "traffic_bytes_total"
	MetricBuildInfo         = "build_info"
)
