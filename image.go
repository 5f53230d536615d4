package pixbright

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/png"
	"io"
	"strings"
	"unsafe"

	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Shape layout of an interleaved raw buffer
type Shape struct {
	Width    int   `json:"width"`
	Height   int   `json:"height"`
	Channels int   `json:"channels"`
	Depth    Depth `json:"bits_per_channel"`
}

// Request of the shape with brightness delta
func (s Shape) Request(brightness int) Request {
	return Request{
		Width:          s.Width,
		Height:         s.Height,
		Channels:       s.Channels,
		BitsPerChannel: int(s.Depth),
		Brightness:     brightness,
	}
}

// NewBuffer allocates a zeroed buffer of size bytes, aligned for 16-bit samples
func NewBuffer(size int) []byte {
	if size <= 0 {
		return nil
	}
	s := make([]uint16, (size+1)/2)
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), size)
}

// to16 maps a full range 16-bit sample into 0..MaxSample16
func to16(v uint16) uint16 {
	return uint16((uint32(v)*MaxSample16 + 65535/2) / 65535)
}

// from16 maps a 0..MaxSample16 sample back to full range
func from16(v uint16) uint16 {
	if v > MaxSample16 {
		v = MaxSample16
	}
	return uint16((uint32(v)*65535 + MaxSample16/2) / MaxSample16)
}

// ImageToBuffer converts img into an interleaved native endian buffer.
// 16-bit images are mapped into 0..MaxSample16, everything else becomes 8-bit.
// Alpha of 16-bit images is not mapped and keeps its full 0..65535 range.
// Opaque color images drop the alpha channel.
func ImageToBuffer(img image.Image) ([]byte, Shape) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	switch m := img.(type) {
	case *image.Gray:
		shape := Shape{Width: w, Height: h, Channels: 1, Depth: Depth8}
		buf := NewBuffer(w * h)
		for y := 0; y < h; y++ {
			i := m.PixOffset(b.Min.X, b.Min.Y+y)
			copy(buf[y*w:(y+1)*w], m.Pix[i:i+w])
		}
		return buf, shape
	case *image.Gray16:
		shape := Shape{Width: w, Height: h, Channels: 1, Depth: Depth16}
		buf := NewBuffer(w * h * 2)
		fromBigEndian16(buf, m.Pix, m.Stride, m.PixOffset(b.Min.X, b.Min.Y), w*2, h)
		return buf, shape
	case *image.NRGBA64, *image.RGBA64:
		n, ok := img.(*image.NRGBA64)
		if !ok {
			n = image.NewNRGBA64(image.Rect(0, 0, w, h))
			xdraw.Draw(n, n.Bounds(), img, b.Min, xdraw.Src)
			b = n.Bounds()
		}
		shape := Shape{Width: w, Height: h, Channels: 4, Depth: Depth16}
		if n.Opaque() {
			shape.Channels = 3
		}
		rowBytes := w * shape.Channels * 2
		buf := NewBuffer(rowBytes * h)
		for y := 0; y < h; y++ {
			i := n.PixOffset(b.Min.X, b.Min.Y+y)
			packRow(buf[y*rowBytes:(y+1)*rowBytes], n.Pix[i:i+w*8], 8, shape.Channels*2)
		}
		for i, s := 0, 0; i+1 < len(buf); i, s = i+2, s+1 {
			v := binary.BigEndian.Uint16(buf[i:])
			if !isAlpha(s, shape.Channels) {
				v = to16(v)
			}
			binary.NativeEndian.PutUint16(buf[i:], v)
		}
		return buf, shape
	}
	n, ok := img.(*image.NRGBA)
	if !ok {
		n = image.NewNRGBA(image.Rect(0, 0, w, h))
		xdraw.Draw(n, n.Bounds(), img, b.Min, xdraw.Src)
		b = n.Bounds()
	}
	shape := Shape{Width: w, Height: h, Channels: 4, Depth: Depth8}
	if n.Opaque() {
		shape.Channels = 3
	}
	rowBytes := w * shape.Channels
	buf := NewBuffer(rowBytes * h)
	for y := 0; y < h; y++ {
		i := n.PixOffset(b.Min.X, b.Min.Y+y)
		packRow(buf[y*rowBytes:(y+1)*rowBytes], n.Pix[i:i+w*4], 4, shape.Channels)
	}
	return buf, shape
}

// packRow copies pixels of srcSize bytes into dstSize bytes, dropping the tail
func packRow(dst, src []byte, srcSize, dstSize int) {
	if srcSize == dstSize {
		copy(dst, src)
		return
	}
	for i, j := 0, 0; i < len(src); i, j = i+srcSize, j+dstSize {
		copy(dst[j:j+dstSize], src[i:i+dstSize])
	}
}

func fromBigEndian16(dst, pix []byte, stride, offset, rowBytes, h int) {
	for y := 0; y < h; y++ {
		src := pix[offset+y*stride : offset+y*stride+rowBytes]
		row := dst[y*rowBytes : (y+1)*rowBytes]
		for i := 0; i < rowBytes; i += 2 {
			binary.NativeEndian.PutUint16(row[i:], to16(binary.BigEndian.Uint16(src[i:])))
		}
	}
}

func toBigEndian16(pix, src []byte, channels int) {
	for i, s := 0, 0; i+1 < len(src); i, s = i+2, s+1 {
		v := binary.NativeEndian.Uint16(src[i:])
		if !isAlpha(s, channels) {
			v = from16(v)
		}
		binary.BigEndian.PutUint16(pix[i:], v)
	}
}

// isAlpha reports whether sample index s is the alpha of a 4 channel pixel
func isAlpha(s, channels int) bool {
	return channels == 4 && s%4 == 3
}

// BufferToImage wraps an interleaved native endian buffer into an image.
// Supports 1 (gray), 3 (RGB) and 4 (RGBA) channels.
// 16-bit alpha is taken as full range 0..65535, same as ImageToBuffer produces.
func BufferToImage(buf []byte, shape Shape) (image.Image, error) {
	req := shape.Request(0)
	if _, err := ParseDepth(req.BitsPerChannel); err != nil {
		return nil, err
	}
	if shape.Width <= 0 || shape.Height <= 0 {
		return nil, ErrInvalid
	}
	if len(buf) < req.SizeBytes() {
		return nil, ErrBufferSize
	}
	rect := image.Rect(0, 0, shape.Width, shape.Height)
	px := shape.Width * shape.Height
	switch {
	case shape.Channels == 1 && shape.Depth == Depth8:
		img := image.NewGray(rect)
		copy(img.Pix, buf[:px])
		return img, nil
	case shape.Channels == 1 && shape.Depth == Depth16:
		img := image.NewGray16(rect)
		toBigEndian16(img.Pix, buf[:px*2], 1)
		return img, nil
	case shape.Channels == 4 && shape.Depth == Depth8:
		img := image.NewNRGBA(rect)
		copy(img.Pix, buf[:px*4])
		return img, nil
	case shape.Channels == 4 && shape.Depth == Depth16:
		img := image.NewNRGBA64(rect)
		toBigEndian16(img.Pix, buf[:px*8], 4)
		return img, nil
	case shape.Channels == 3 && shape.Depth == Depth8:
		img := image.NewNRGBA(rect)
		for i := 0; i < px; i++ {
			copy(img.Pix[i*4:i*4+3], buf[i*3:i*3+3])
			img.Pix[i*4+3] = 0xff
		}
		return img, nil
	case shape.Channels == 3 && shape.Depth == Depth16:
		img := image.NewNRGBA64(rect)
		for i := 0; i < px; i++ {
			toBigEndian16(img.Pix[i*8:i*8+6], buf[i*6:i*6+6], 3)
			img.Pix[i*8+6], img.Pix[i*8+7] = 0xff, 0xff
		}
		return img, nil
	}
	return nil, ErrUnsupportedFormat
}

// DecodeImage decodes PNG, TIFF, BMP or WebP
func DecodeImage(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err == image.ErrFormat {
		return nil, "", ErrUnsupportedFormat
	}
	return img, format, err
}

// EncodeImage encodes img into format png, tiff or bmp
func EncodeImage(w io.Writer, img image.Image, format string) error {
	switch strings.ToLower(format) {
	case "", "png":
		return png.Encode(w, img)
	case "tiff", "tif":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case "bmp":
		return bmp.Encode(w, img)
	}
	return ErrUnsupportedFormat
}

// keepAlpha snapshots the alpha channel of a 4 channel buffer, restored by the returned func.
// Together with the unmapped 16-bit alpha of ImageToBuffer, alpha round trips bit exact.
func keepAlpha(buf []byte, shape Shape) func() {
	if shape.Channels != 4 {
		return func() {}
	}
	size := shape.Depth.SampleSize()
	stride := size * 4
	alpha := make([]byte, 0, len(buf)/4)
	for i := stride - size; i < len(buf); i += stride {
		alpha = append(alpha, buf[i:i+size]...)
	}
	return func() {
		for i, j := stride-size, 0; i < len(buf); i, j = i+stride, j+size {
			copy(buf[i:i+size], alpha[j:j+size])
		}
	}
}

// AdjustImage decodes an image blob, adjusts brightness and encodes it into format
func (a *Adjuster) AdjustImage(blob *Blob, brightness int, format string) (*Blob, error) {
	r, _, err := blob.NewReader()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = r.Close()
	}()
	img, srcFormat, err := DecodeImage(r)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = srcFormat
		if format == "webp" {
			format = "png"
		}
	}
	buf, shape := ImageToBuffer(img)
	restore := keepAlpha(buf, shape)
	if _, err = a.Adjust(buf, shape.Request(brightness)); err != nil {
		return nil, err
	}
	restore()
	if img, err = BufferToImage(buf, shape); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err = EncodeImage(&out, img, format); err != nil {
		return nil, err
	}
	return NewBlobFromBytes(out.Bytes()), nil
}
