package network

import (
	"context"

	"github.com/royna2544/tgbotd/essentials"
	"github.com/stretchr/testify/mock"
)

// DialerMock mocks Dialer for tests exercising a wrapper (cooldownDialer,
// proxyDialer) without a real socket underneath.
type DialerMock struct {
	mock.Mock
}

func (m *DialerMock) Dial(network, address string) (essentials.Conn, error) {
	args := m.Called(network, address)

	conn, _ := args.Get(0).(essentials.Conn)

	return conn, args.Error(1)
}

func (m *DialerMock) DialContext(ctx context.Context, network, address string) (essentials.Conn, error) {
	args := m.Called(ctx, network, address)

	conn, _ := args.Get(0).(essentials.Conn)

	return conn, args.Error(1)
}
