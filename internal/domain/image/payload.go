package image

import "encoding/base64"

// Encode base64-encodes a normalized image.
func Encode(img *NormalizedImage) Payload {
	return Payload{
		MimeType: MimeJPEG,
		Data:     base64.StdEncoding.EncodeToString(img.Bytes),
	}
}

// EncodeRaw wraps bytes that did not go through normalization.
func EncodeRaw(raw []byte, mimeType string) Payload {
	return Payload{
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(raw),
	}
}

// DataURL renders the payload as a data URL.
func (p Payload) DataURL() string {
	return "data:" + p.MimeType + ";base64," + p.Data
}
