package pixbright

import (
	"math"
	"unsafe"

	"golang.org/x/exp/constraints"
)

const Version = "0.1.0"

// Depth bits per channel of a sample
type Depth int

const (
	Depth8  Depth = 8
	Depth16 Depth = 16
)

const (
	// MaxSample8 upper clamp bound of 8-bit samples
	MaxSample8 = 255
	// MaxSample16 upper clamp bound of 16-bit samples.
	// Photoshop 16-bit documents store channels in 0..32768, not 0..65535.
	MaxSample16 = 32768
)

// ParseDepth resolves bits per channel into a supported Depth
func ParseDepth(bits int) (Depth, error) {
	switch Depth(bits) {
	case Depth8, Depth16:
		return Depth(bits), nil
	}
	return 0, BitDepthError{Bits: bits}
}

// SampleSize bytes per sample
func (d Depth) SampleSize() int {
	return int(d) / 8
}

// Max upper clamp bound
func (d Depth) Max() int {
	if d == Depth16 {
		return MaxSample16
	}
	return MaxSample8
}

// String implements fmt.Stringer
func (d Depth) String() string {
	switch d {
	case Depth8:
		return "uint8"
	case Depth16:
		return "uint16"
	}
	return "unsupported"
}

// Request shape and brightness delta of a single transform
type Request struct {
	Width          int `json:"width"`
	Height         int `json:"height"`
	Channels       int `json:"channels"`
	BitsPerChannel int `json:"bits_per_channel"`
	Brightness     int `json:"brightness"`
}

// Size total number of samples, not bytes.
// Returns 0 on non-positive dimensions or when the product overflows int.
func (r Request) Size() int {
	n, ok := mulPositive(r.Width, r.Height)
	if ok {
		n, ok = mulPositive(n, r.Channels)
	}
	if !ok {
		return 0
	}
	return n
}

// SizeBytes total number of bytes, 0 when Size is 0 or the byte count overflows int
func (r Request) SizeBytes() int {
	n, ok := mulPositive(r.Size(), r.BitsPerChannel)
	if !ok {
		return 0
	}
	return n / 8
}

func mulPositive(a, b int) (int, bool) {
	if a <= 0 || b <= 0 || a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// Result tagged view over the adjusted buffer.
// Buf aliases the memory passed to Adjust, nothing is copied.
type Result struct {
	Depth Depth
	Len   int
	Buf   []byte
}

// Uint8 samples of an 8-bit result, nil otherwise
func (r *Result) Uint8() []uint8 {
	if r == nil || r.Depth != Depth8 {
		return nil
	}
	return r.Buf[:r.Len]
}

// Uint16 native endian samples of a 16-bit result, nil otherwise
func (r *Result) Uint16() []uint16 {
	if r == nil || r.Depth != Depth16 || r.Len == 0 {
		return nil
	}
	return unsafe.Slice((*uint16)(unsafe.Pointer(&r.Buf[0])), r.Len)
}

// Adjust adds req.Brightness to every sample of buf in place,
// saturating to [0, Depth.Max()].
// buf is borrowed: the caller keeps ownership and the returned Result aliases it.
// On error buf is left untouched.
func Adjust(buf []byte, req Request) (*Result, error) {
	depth, err := ParseDepth(req.BitsPerChannel)
	if err != nil {
		return nil, err
	}
	if req.Width <= 0 || req.Height <= 0 || req.Channels <= 0 {
		return nil, ErrInvalid
	}
	size, sizeBytes := req.Size(), req.SizeBytes()
	if size <= 0 || sizeBytes <= 0 {
		return nil, ErrMaxSizeExceeded
	}
	if len(buf) < sizeBytes {
		return nil, ErrBufferSize
	}
	buf = buf[:sizeBytes]
	switch depth {
	case Depth8:
		adjustSamples(buf, req.Brightness, MaxSample8)
	case Depth16:
		if uintptr(unsafe.Pointer(&buf[0]))%2 != 0 {
			return nil, ErrMisaligned
		}
		samples := unsafe.Slice((*uint16)(unsafe.Pointer(&buf[0])), size)
		adjustSamples(samples, req.Brightness, MaxSample16)
	}
	return &Result{Depth: depth, Len: size, Buf: buf}, nil
}

// adjustSamples saturating add over samples, widened to int
func adjustSamples[T constraints.Unsigned](samples []T, delta, max int) {
	for i, s := range samples {
		v := int(s) + delta
		if v < 0 {
			v = 0
		} else if v > max {
			v = max
		}
		samples[i] = T(v)
	}
}
