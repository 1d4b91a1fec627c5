package network

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type SOCKS5DialerTestSuite struct {
	suite.Suite
}

func TestSOCKS5DialerTestSuite(t *testing.T) {
	suite.Run(t, new(SOCKS5DialerTestSuite))
}

func (suite *SOCKS5DialerTestSuite) TestImplementsDialer() {
	d := NewSOCKS5Dialer("127.0.0.1:1", "user", "pass", time.Second)
	suite.Implements((*Dialer)(nil), d)
}

func (suite *SOCKS5DialerTestSuite) TestDialContextHonorsCancellation() {
	d := NewSOCKS5Dialer("127.0.0.1:1", "", "", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.DialContext(ctx, "tcp", "example.invalid:80")
	suite.Error(err)
}

func (suite *SOCKS5DialerTestSuite) TestDialFailsAgainstUnreachableProxy() {
	d := NewSOCKS5Dialer("127.0.0.1:1", "", "", 200*time.Millisecond)

	_, err := d.Dial("tcp", "example.invalid:80")
	suite.Error(err)
}
