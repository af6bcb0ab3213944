package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.NotNil(err)
	suite.Equal(ErrCodeInvalidParameter, err.Code)
	suite.Equal("invalid parameter", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeFeedDataMissing, "no feed data for %s", "atr")
	suite.NotNil(err)
	suite.Equal(ErrCodeFeedDataMissing, err.Code)
	suite.Equal("no feed data for atr", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeOrderFailed, "failed to open order", cause)
	suite.NotNil(err)
	suite.Equal(ErrCodeOrderFailed, err.Code)
	suite.Equal("failed to open order", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("underlying error")
	err := Wrapf(ErrCodeTicketNotFound, cause, "no position with ticket %d", 42)
	suite.NotNil(err)
	suite.Equal(ErrCodeTicketNotFound, err.Code)
	suite.Equal("no position with ticket 42", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Equal("[100] invalid parameter", err.Error())
}

func (suite *ErrorTestSuite) TestErrorStringWithCause() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeFeedUnavailable, "feed unavailable", cause)
	suite.Equal("[200] feed unavailable: underlying error", err.Error())
}

func (suite *ErrorTestSuite) TestUnwrap() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeFeedUnavailable, "feed unavailable", cause)
	suite.Equal(cause, err.Unwrap())
}

func (suite *ErrorTestSuite) TestUnwrapNil() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Nil(err.Unwrap())
}

func (suite *ErrorTestSuite) TestGetCode() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Equal(ErrCodeInvalidParameter, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeFromWrapped() {
	cause := New(ErrCodeFeedDataMissing, "no feed data")
	err := Wrap(ErrCodeSignalEvaluation, "signal evaluation aborted", cause)
	// GetCode should return the outermost error's code
	suite.Equal(ErrCodeSignalEvaluation, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeFromPlainError() {
	err := errors.New("standard error")
	suite.Equal(ErrCodeUnknown, GetCode(err))
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.True(HasCode(err, ErrCodeInvalidParameter))
	suite.False(HasCode(err, ErrCodeOrderFailed))
}

func (suite *ErrorTestSuite) TestIsError() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeOrderFailed, "failed to open order", cause)
	suite.True(Is(err, cause))
}

func (suite *ErrorTestSuite) TestAsError() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	var structured *Error
	suite.True(As(err, &structured))
	suite.Equal(ErrCodeInvalidParameter, structured.Code)
}

func (suite *ErrorTestSuite) TestIsTransient() {
	suite.True(IsTransient(New(ErrCodeRequote, "requote")))
	suite.True(IsTransient(New(ErrCodeOffQuotes, "off quotes")))
	suite.True(IsTransient(New(ErrCodeServerBusy, "server busy")))
	suite.True(IsTransient(New(ErrCodeTimeout, "timeout")))
	suite.False(IsTransient(New(ErrCodeNoMoney, "not enough money")))
	suite.False(IsTransient(errors.New("plain error")))
}

func (suite *ErrorTestSuite) TestErrorCodeValues() {
	// Verify category bases have expected values
	suite.Equal(ErrorCode(1), ErrCodeUnknown)
	suite.Equal(ErrorCode(100), ErrCodeInvalidParameter)
	suite.Equal(ErrorCode(200), ErrCodeFeedUnavailable)
	suite.Equal(ErrorCode(300), ErrCodeSignalEvaluation)
	suite.Equal(ErrorCode(400), ErrCodeRiskZeroDistance)
	suite.Equal(ErrorCode(500), ErrCodeOrderFailed)
	suite.Equal(ErrorCode(600), ErrCodeAccountQueryFailed)
	suite.Equal(ErrorCode(700), ErrCodeEngineNotInitialized)
}
