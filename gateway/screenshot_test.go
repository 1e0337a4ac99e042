package gateway

import (
	"encoding/base64"
	"testing"

	"github.com/BaSui01/actiongate/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeScreenshot(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpeg := []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
	std := base64.StdEncoding.EncodeToString(png)
	raw := base64.RawStdEncoding.EncodeToString(png)

	tests := []struct {
		name      string
		in        string
		wantBytes []byte
		wantType  string
	}{
		{"empty", "", nil, ""},
		{"std", std, png, "image/png"},
		{"raw no padding", raw, png, "image/png"},
		{"data url", "data:image/png;base64," + std, png, "image/png"},
		{"data url only prefix", "data:image/png;base64,", nil, ""},
		{"jpeg sniffed", base64.StdEncoding.EncodeToString(jpeg), jpeg, "image/jpeg"},
		{"non image falls back", base64.StdEncoding.EncodeToString([]byte("hello")), []byte("hello"), "image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, mediaType, err := DecodeScreenshot(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBytes, data)
			assert.Equal(t, tt.wantType, mediaType)
		})
	}
}

func TestDecodeScreenshot_Invalid(t *testing.T) {
	for _, in := range []string{"data:image/png;base64", "%%%", "abc$"} {
		_, _, err := DecodeScreenshot(in)
		require.Error(t, err, in)
		assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest), in)
	}
}
