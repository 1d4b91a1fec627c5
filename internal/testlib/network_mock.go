package testlib

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/royna2544/tgbotd/essentials"
	"github.com/stretchr/testify/mock"
)

// NetworkMock mocks network.Network for tests that exercise a dialing
// collaborator without opening a real socket.
type NetworkMock struct {
	mock.Mock
}

func (m *NetworkMock) Dial(network, address string) (essentials.Conn, error) {
	args := m.Called(network, address)

	return args.Get(0).(essentials.Conn), args.Error(1) //nolint: wrapcheck, forcetypeassert
}

func (m *NetworkMock) DialContext(ctx context.Context, network, address string) (essentials.Conn, error) {
	args := m.Called(ctx, network, address)

	return args.Get(0).(essentials.Conn), args.Error(1) //nolint: wrapcheck, forcetypeassert
}

func (m *NetworkMock) MakeHTTPClient(dialFunc func(ctx context.Context,
	network, address string) (essentials.Conn, error),
) *http.Client {
	return m.Called(dialFunc).Get(0).(*http.Client) //nolint: forcetypeassert
}

func (m *NetworkMock) GetDNSCacheMetrics() (uint64, uint64, uint64, int) {
	args := m.Called()
	return args.Get(0).(uint64), args.Get(1).(uint64), args.Get(2).(uint64), args.Int(3) //nolint: forcetypeassert
}

func (m *NetworkMock) WarmUp(hostnames []string) {
	m.Called(hostnames)
}

func (m *NetworkMock) Stop() {
	m.Called()
}

// EssentialsConnMock mocks essentials.Conn for dialer tests that need a
// fake connection without touching a real socket.
type EssentialsConnMock struct {
	mock.Mock
}

func (m *EssentialsConnMock) Read(b []byte) (int, error) {
	args := m.Called(b)
	return args.Int(0), args.Error(1)
}

func (m *EssentialsConnMock) Write(b []byte) (int, error) {
	args := m.Called(b)
	return args.Int(0), args.Error(1)
}

func (m *EssentialsConnMock) Close() error {
	return m.Called().Error(0)
}

func (m *EssentialsConnMock) LocalAddr() net.Addr {
	return m.Called().Get(0).(net.Addr) //nolint: forcetypeassert
}

func (m *EssentialsConnMock) RemoteAddr() net.Addr {
	return m.Called().Get(0).(net.Addr) //nolint: forcetypeassert
}

func (m *EssentialsConnMock) SetDeadline(t time.Time) error {
	return m.Called(t).Error(0)
}

func (m *EssentialsConnMock) SetReadDeadline(t time.Time) error {
	return m.Called(t).Error(0)
}

func (m *EssentialsConnMock) SetWriteDeadline(t time.Time) error {
	return m.Called(t).Error(0)
}

func (m *EssentialsConnMock) CloseRead() error {
	return m.Called().Error(0)
}

func (m *EssentialsConnMock) CloseWrite() error {
	return m.Called().Error(0)
}
