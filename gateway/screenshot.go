package gateway

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/BaSui01/actiongate/types"
)

// DecodeScreenshot strips an optional data-URL prefix and decodes base64,
// padded or not. An empty input yields no image. The media type is sniffed
// from the decoded bytes and falls back to image/png.
func DecodeScreenshot(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		i := strings.IndexByte(s, ',')
		if i < 0 {
			return nil, "", types.NewInvalidRequestError("screenshot data URL has no payload").
				WithHTTPStatus(http.StatusBadRequest)
		}
		s = s[i+1:]
	}
	if s == "" {
		return nil, "", nil
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	if err != nil {
		return nil, "", types.NewInvalidRequestError("screenshot is not valid base64").
			WithHTTPStatus(http.StatusBadRequest).
			WithCause(err)
	}

	mediaType := http.DetectContentType(data)
	if !strings.HasPrefix(mediaType, "image/") {
		mediaType = "image/png"
	}
	return data, mediaType, nil
}
