package pixbright

import (
	"net/url"
	"strconv"
	"strings"
)

// Params image endpoint params, parsed from /{brightness}/{image}
type Params struct {
	Path       string `json:"path"`
	Brightness int    `json:"brightness"`
	Image      string `json:"image"`
	Format     string `json:"format,omitempty"`
}

// ParseParams parses image endpoint path and query
func ParseParams(path string, query url.Values) (p Params, err error) {
	path = strings.TrimPrefix(path, "/")
	idx := strings.Index(path, "/")
	if idx < 1 || idx == len(path)-1 {
		return p, ErrInvalid
	}
	if p.Brightness, err = strconv.Atoi(path[:idx]); err != nil {
		return p, ErrInvalid
	}
	if p.Image, err = url.PathUnescape(path[idx+1:]); err != nil {
		return p, ErrInvalid
	}
	p.Path = path
	if query != nil {
		switch format := strings.ToLower(query.Get("format")); format {
		case "", "png", "tiff", "bmp":
			p.Format = format
		case "tif":
			p.Format = "tiff"
		default:
			return p, ErrUnsupportedFormat
		}
	}
	return p, nil
}

// ResultKey storage key of the adjusted image
func (p Params) ResultKey() string {
	key := strconv.Itoa(p.Brightness) + "/" + strings.TrimPrefix(p.Image, "/")
	if p.Format != "" {
		key += "." + p.Format
	}
	return key
}

// ParseRequest parses raw endpoint query into Request
func ParseRequest(query url.Values) (req Request, err error) {
	for _, f := range []struct {
		name string
		v    *int
	}{
		{"width", &req.Width},
		{"height", &req.Height},
		{"channels", &req.Channels},
		{"bits", &req.BitsPerChannel},
		{"brightness", &req.Brightness},
	} {
		if *f.v, err = strconv.Atoi(query.Get(f.name)); err != nil {
			return req, ErrInvalid
		}
	}
	return req, nil
}
