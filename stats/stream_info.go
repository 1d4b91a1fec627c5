package stats

import (
	"net"
	"time"
)

// streamInfo tracks the per-connection state the prometheusProcessor
// needs between events that arrive out of order relative to each other
// (e.g. EventCommand can arrive many times between EventConnStart and
// EventConnFinish), mirroring the teacher's streamInfo.
type streamInfo struct {
	tags      map[string]string
	startTime time.Time
}

func acquireStreamInfo() *streamInfo {
	return &streamInfo{tags: make(map[string]string, 2)}
}

func (s *streamInfo) reset() {
	s.startTime = time.Time{}

	for k := range s.tags {
		delete(s.tags, k)
	}
}

func releaseStreamInfo(s *streamInfo) {
	s.reset()
}

func directionTag(isRead bool) string {
	if isRead {
		return TagDirectionRead
	}

	return TagDirectionWrite
}

func ipFamilyTag(ip net.IP) string {
	if ip.To4() != nil {
		return TagIPFamilyIPv4
	}

	return TagIPFamilyIPv6
}
