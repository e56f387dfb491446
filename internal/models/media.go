package models

// MediaType tells the caller how the returned URL is meant to be played back.
type MediaType int

const (
	MediaTypeImage MediaType = iota
	MediaTypeVideo
	MediaTypeHLS
)

// Media is the only artifact handed back to upload callers. Immutable once produced.
type Media struct {
	URL  string    `json:"url"`
	Type MediaType `json:"type"`
}

// UploadedFile is a file accepted out of a multipart body and written to temp
// storage. It is deleted from temp storage once normalized or enqueued.
type UploadedFile struct {
	TempPath     string
	OriginalName string
	MimeType     string
	Size         int64
}
