package config

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type TypeBytesTestSuite struct {
	suite.Suite
}

func TestTypeBytesTestSuite(t *testing.T) {
	suite.Run(t, new(TypeBytesTestSuite))
}

func (suite *TypeBytesTestSuite) TestBareInteger() {
	var t TypeBytes

	suite.NoError(t.Set("1024"))
	suite.EqualValues(1024, t.Value)
}

func (suite *TypeBytesTestSuite) TestKBSuffix() {
	var t TypeBytes

	suite.NoError(t.Set("1KB"))
	suite.EqualValues(1024, t.Value)
}

func (suite *TypeBytesTestSuite) TestMBSuffix() {
	var t TypeBytes

	suite.NoError(t.Set("10MB"))
	suite.EqualValues(10*1024*1024, t.Value)
}

func (suite *TypeBytesTestSuite) TestGBSuffixLowercase() {
	var t TypeBytes

	suite.NoError(t.Set("2gb"))
	suite.EqualValues(2*1024*1024*1024, t.Value)
}

func (suite *TypeBytesTestSuite) TestRejectsGarbage() {
	var t TypeBytes

	suite.Error(t.Set("not-a-size"))
}

func (suite *TypeBytesTestSuite) TestUnmarshalJSONFromString() {
	var t TypeBytes

	suite.NoError(t.UnmarshalJSON([]byte(`"5MB"`)))
	suite.EqualValues(5*1024*1024, t.Value)
}

func (suite *TypeBytesTestSuite) TestUnmarshalJSONFromNumber() {
	var t TypeBytes

	suite.NoError(t.UnmarshalJSON([]byte(`4096`)))
	suite.EqualValues(4096, t.Value)
}

func (suite *TypeBytesTestSuite) TestGetFallsBackWhenUnset() {
	var t TypeBytes

	suite.EqualValues(42, t.Get(42))
}

func (suite *TypeBytesTestSuite) TestGetReturnsValueWhenSet() {
	t := TypeBytes{Value: 7}

	suite.EqualValues(7, t.Get(42))
}
