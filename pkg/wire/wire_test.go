package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncode(t *testing.T) {
	assert.Equal(t, "echo|", Encode(KeyHandshakeInit, ""))
	assert.Equal(t, "pid|42", Encode(KeyPeerID, "42"))
	assert.Equal(t, "-1|echo", HandshakeAck())
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		msg     string
		want    Frame
		wantErr bool
	}{
		{
			name: "data frame",
			msg:  `42|{"a":1}`,
			want: Frame{RequestID: "42", Payload: `{"a":1}`},
		},
		{
			name: "payload containing delimiter",
			msg:  `7|{"s":"a|b"}`,
			want: Frame{RequestID: "7", Payload: `{"s":"a|b"}`},
		},
		{
			name: "empty payload",
			msg:  "13|",
			want: Frame{RequestID: "13", Payload: ""},
		},
		{
			name:    "no delimiter",
			msg:     "garbage",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.msg)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrMalformed))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
