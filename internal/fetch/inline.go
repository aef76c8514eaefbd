package fetch

import (
	"strings"

	"github.com/vincent-petithory/dataurl"
)

const base64Marker = ";base64"

// decodeInline decodes a data: URI. Base64 payloads whose trailing padding was
// stripped are padded back to a multiple of four before decoding.
func decodeInline(reference string) (*Resource, error) {
	normalized := inlineScheme + reference[len(inlineScheme):]
	du, err := dataurl.DecodeString(restorePadding(normalized))
	if err != nil {
		return nil, err
	}
	return &Resource{
		Content:   du.Data,
		MediaType: du.MediaType.ContentType(),
	}, nil
}

func restorePadding(reference string) string {
	comma := strings.IndexByte(reference, ',')
	if comma < 0 {
		return reference
	}
	header := strings.ToLower(reference[:comma])
	if !strings.HasSuffix(header, base64Marker) {
		return reference
	}
	payload := strings.TrimRight(reference[comma+1:], " \t\r\n")
	if missing := len(payload) % 4; missing != 0 {
		payload += strings.Repeat("=", 4-missing)
	}
	return reference[:comma+1] + payload
}
