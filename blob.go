package pixbright

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"sync"
	"time"
)

// BlobType type of the blob content
type BlobType int

const (
	BlobTypeUnknown BlobType = iota
	BlobTypeEmpty
	BlobTypePNG
	BlobTypeTIFF
	BlobTypeBMP
	BlobTypeWEBP
	BlobTypeJPEG
	BlobTypeGIF
)

// Stat blob attributes from storage
type Stat struct {
	ModifiedTime time.Time
	ETag         string
	Size         int64
}

// Blob abstraction for file path, bytes data and lazy readers
type Blob struct {
	newReader   func() (r io.ReadCloser, size int64, err error)
	path        string
	buf         []byte
	once        sync.Once
	err         error
	blobType    BlobType
	contentType string

	Stat *Stat
}

// NewBlob creates Blob from a reader factory, read lazily on first access
func NewBlob(newReader func() (reader io.ReadCloser, size int64, err error)) *Blob {
	return &Blob{newReader: newReader}
}

// NewBlobFromPath creates Blob from file path
func NewBlobFromPath(filepath string) *Blob {
	return &Blob{path: filepath}
}

// NewBlobFromBytes creates Blob from bytes
func NewBlobFromBytes(buf []byte) *Blob {
	return &Blob{buf: buf}
}

// NewEmptyBlob creates empty Blob
func NewEmptyBlob() *Blob {
	return &Blob{buf: []byte{}, blobType: BlobTypeEmpty}
}

var (
	pngHeader    = []byte("\x89PNG")
	tiffLEHeader = []byte("II\x2A\x00")
	tiffBEHeader = []byte("MM\x00\x2A")
	bmpHeader    = []byte("BM")
	riffHeader   = []byte("RIFF")
	webpHeader   = []byte("WEBP")
	jpegHeader   = []byte("\xFF\xD8\xFF")
	gifHeader    = []byte("GIF8")
)

func (b *Blob) init() {
	b.once.Do(func() {
		if b.blobType == BlobTypeEmpty {
			return
		}
		if len(b.buf) == 0 {
			if b.path != "" {
				b.buf, b.err = os.ReadFile(b.path)
			} else if b.newReader != nil {
				var r io.ReadCloser
				if r, _, b.err = b.newReader(); b.err == nil {
					b.buf, b.err = io.ReadAll(r)
					_ = r.Close()
				}
			}
		}
		if len(b.buf) == 0 {
			b.blobType = BlobTypeEmpty
			return
		}
		b.blobType = detectBlobType(b.buf)
	})
}

func detectBlobType(buf []byte) BlobType {
	switch {
	case bytes.HasPrefix(buf, pngHeader):
		return BlobTypePNG
	case bytes.HasPrefix(buf, tiffLEHeader), bytes.HasPrefix(buf, tiffBEHeader):
		return BlobTypeTIFF
	case bytes.HasPrefix(buf, jpegHeader):
		return BlobTypeJPEG
	case bytes.HasPrefix(buf, gifHeader):
		return BlobTypeGIF
	case len(buf) >= 12 && bytes.HasPrefix(buf, riffHeader) && bytes.Equal(buf[8:12], webpHeader):
		return BlobTypeWEBP
	case len(buf) >= 14 && bytes.HasPrefix(buf, bmpHeader):
		return BlobTypeBMP
	}
	return BlobTypeUnknown
}

// ReadAll reads all bytes of the blob
func (b *Blob) ReadAll() ([]byte, error) {
	b.init()
	return b.buf, b.err
}

// NewReader creates a new reader over the blob content
func (b *Blob) NewReader() (io.ReadCloser, int64, error) {
	buf, err := b.ReadAll()
	if err != nil {
		return nil, 0, err
	}
	return io.NopCloser(bytes.NewReader(buf)), int64(len(buf)), nil
}

// Err blob read error
func (b *Blob) Err() error {
	b.init()
	return b.err
}

// IsEmpty check if blob is empty
func (b *Blob) IsEmpty() bool {
	b.init()
	return b.blobType == BlobTypeEmpty
}

// BlobType detected blob type
func (b *Blob) BlobType() BlobType {
	b.init()
	return b.blobType
}

// SetContentType overrides the detected content type
func (b *Blob) SetContentType(contentType string) {
	b.contentType = contentType
}

// ContentType content type of the blob
func (b *Blob) ContentType() string {
	if b.contentType != "" {
		return b.contentType
	}
	switch b.BlobType() {
	case BlobTypePNG:
		return "image/png"
	case BlobTypeTIFF:
		return "image/tiff"
	case BlobTypeBMP:
		return "image/bmp"
	case BlobTypeWEBP:
		return "image/webp"
	case BlobTypeJPEG:
		return "image/jpeg"
	case BlobTypeGIF:
		return "image/gif"
	case BlobTypeEmpty:
		return "application/octet-stream"
	}
	return http.DetectContentType(b.buf)
}

func isEmpty(b *Blob) bool {
	return b == nil || b.IsEmpty()
}
