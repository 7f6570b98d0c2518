package oneid

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{&Error{Op: OpToken, Kind: KindRejected, StatusCode: 400, Body: []byte("bad")}, "oneid token: rejected with HTTP 400: bad"},
		{&Error{Op: OpUserInfo, Kind: KindBusinessRule, Field: "pin"}, `oneid user_info: response is missing required "pin"`},
		{&Error{Op: OpUserInfo, Kind: KindValidation, Messages: []string{"x"}}, "oneid user_info: invalid input: [x]"},
		{&Error{Op: OpToken, Kind: KindParse, Err: errors.New("eof")}, "oneid token: parse: eof"},
		{&Error{Op: OpToken, Kind: KindTransport}, "oneid token: transport"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
}

func TestError_KindHelpersUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("login: %w", &Error{Op: OpToken, Kind: KindTransport, Err: cause})

	assert.True(t, IsTransport(err))
	assert.False(t, IsRejected(err))
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsParse(cause))
}
