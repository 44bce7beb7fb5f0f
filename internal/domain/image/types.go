package image

// MimeJPEG is the MIME type of every normalized payload.
const MimeJPEG = "image/jpeg"

// SourceKind classifies an image input string.
type SourceKind int

const (
	// SourceBase64 is the default: any input that is neither a URL nor a data URI.
	SourceBase64 SourceKind = iota
	SourceDataURI
	SourceURL
)

func (k SourceKind) String() string {
	switch k {
	case SourceURL:
		return "url"
	case SourceDataURI:
		return "data_uri"
	default:
		return "base64"
	}
}

// RawImage holds the decoded bytes of one input together with the MIME type
// announced by its source.
type RawImage struct {
	Bytes    []byte
	MimeHint string
	Source   SourceKind
}

// Info describes an image header without decoding pixel data.
type Info struct {
	Format string
	Width  int
	Height int
}

// NormalizedImage is a JPEG byte stream bounded by the configured max edge.
type NormalizedImage struct {
	Bytes        []byte
	Width        int
	Height       int
	SourceFormat string
}

// Payload is the canonical unit handed to vision backends.
type Payload struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// FallbackPolicy selects what happens when normalization fails.
type FallbackPolicy string

const (
	// FallbackFail surfaces the normalize error to the caller.
	FallbackFail FallbackPolicy = "fail"
	// FallbackPassthrough forwards the original bytes with their announced MIME type.
	FallbackPassthrough FallbackPolicy = "passthrough"
)
