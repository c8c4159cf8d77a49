package models

// BlobType tags the kind of payload stored under a blob key.
type BlobType string

const (
	BlobAudio BlobType = "audio"
	BlobImage BlobType = "image"
	BlobVideo BlobType = "video"
)

// BlobMeta is the bookkeeping stored alongside a blob payload.
type BlobMeta struct {
	Type      BlobType `json:"type"`
	Bytes     int64    `json:"bytes"`
	CreatedAt int64    `json:"createdAt"` // epoch milliseconds
}

// BlobStat is the accounting view of one stored blob: no payload, just
// its key, type tag, and size.
type BlobStat struct {
	Key   string
	Type  BlobType
	Bytes int64
}
