package fits

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"specred/internal/frame"
)

const (
	recordSize = 80
	blockSize  = 2880
)

// Read loads the primary HDU of a FITS file as a float64 frame.
func Read(path string) (*frame.Frame, Header, error) {
	return ReadHDU(path, 0)
}

// ReadHDU loads the hdu-th header-data unit (0 is the primary) as a float64
// frame, applying BSCALE and BZERO. The addressed HDU must hold a 2-D image.
func ReadHDU(path string, hdu int) (*frame.Frame, Header, error) {
	if hdu < 0 {
		return nil, nil, fmt.Errorf("%w: index %d", ErrNoSuchHDU, hdu)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening FITS file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for i := 0; ; i++ {
		hdr, raw, err := readHeader(r, i == 0)
		if err != nil {
			if i > 0 && err == io.EOF {
				return nil, nil, fmt.Errorf("%w: file %s has %d HDUs", ErrNoSuchHDU, path, i)
			}
			return nil, nil, fmt.Errorf("HDU %d of %s: %w", i, path, err)
		}
		if i == hdu {
			img, err := readImage(r, raw)
			if err != nil {
				return nil, nil, fmt.Errorf("HDU %d of %s: %w", i, path, err)
			}
			return img, hdr, nil
		}
		if err := skipData(r, raw); err != nil {
			return nil, nil, fmt.Errorf("HDU %d of %s: %w", i, path, err)
		}
	}
}

// rawHeader carries the structural cards needed to size and decode the data
// section.
type rawHeader struct {
	bitpix int
	naxes  []int
	bzero  float64
	bscale float64
}

func (rh rawHeader) pixels() int {
	if len(rh.naxes) == 0 {
		return 0
	}
	n := 1
	for _, ax := range rh.naxes {
		n *= ax
	}
	return n
}

func (rh rawHeader) dataBytes() int64 {
	size := rh.bitpix
	if size < 0 {
		size = -size
	}
	return int64(rh.pixels()) * int64(size/8)
}

func readHeader(r io.Reader, primary bool) (Header, rawHeader, error) {
	hdr := make(Header)
	raw := rawHeader{bscale: 1}
	record := make([]byte, recordSize)
	sawFirst := false
	for {
		done := false
		for i := 0; i < blockSize/recordSize; i++ {
			if _, err := io.ReadFull(r, record); err != nil {
				if !sawFirst && err == io.EOF {
					return nil, raw, io.EOF
				}
				return nil, raw, fmt.Errorf("%w: truncated header: %v", ErrHeader, err)
			}
			card := string(record)
			keyword := strings.TrimSpace(card[:8])
			if !sawFirst {
				sawFirst = true
				if primary && keyword != "SIMPLE" {
					return nil, raw, fmt.Errorf("%w: primary HDU does not start with SIMPLE", ErrHeader)
				}
				if !primary && keyword != "XTENSION" {
					return nil, raw, fmt.Errorf("%w: extension does not start with XTENSION", ErrHeader)
				}
			}
			if keyword == "END" {
				done = true
				continue
			}
			if done || len(card) <= 10 || card[8] != '=' || card[9] != ' ' {
				continue
			}
			value := strings.TrimSpace(strings.SplitN(card[10:], "/", 2)[0])
			hdr[keyword] = unquote(value)
			switch keyword {
			case "BITPIX":
				raw.bitpix, _ = strconv.Atoi(value)
			case "NAXIS":
				n, _ := strconv.Atoi(value)
				if n < 0 || n > 99 {
					return nil, raw, fmt.Errorf("%w: NAXIS=%d", ErrHeader, n)
				}
				raw.naxes = make([]int, n)
			case "BZERO":
				raw.bzero, _ = strconv.ParseFloat(value, 64)
			case "BSCALE":
				raw.bscale, _ = strconv.ParseFloat(value, 64)
			default:
				if ax, ok := strings.CutPrefix(keyword, "NAXIS"); ok {
					idx, err := strconv.Atoi(ax)
					if err == nil && idx >= 1 && idx <= len(raw.naxes) {
						raw.naxes[idx-1], _ = strconv.Atoi(value)
					}
				}
			}
		}
		if done {
			return hdr, raw, nil
		}
	}
}

func readImage(r io.Reader, raw rawHeader) (*frame.Frame, error) {
	if len(raw.naxes) != 2 {
		return nil, fmt.Errorf("%w: NAXIS=%d, want a 2-D image", ErrUnsupportedData, len(raw.naxes))
	}
	cols, rows := raw.naxes[0], raw.naxes[1]
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("%w: image is %dx%d", ErrUnsupportedData, rows, cols)
	}
	npix := rows * cols
	buf := make([]byte, raw.dataBytes())
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("reading pixel data: %w", err)
	}

	data := make([]float64, npix)
	switch raw.bitpix {
	case 8:
		for i := range data {
			data[i] = float64(buf[i])*raw.bscale + raw.bzero
		}
	case 16:
		for i := range data {
			v := int16(binary.BigEndian.Uint16(buf[i*2:]))
			data[i] = float64(v)*raw.bscale + raw.bzero
		}
	case 32:
		for i := range data {
			v := int32(binary.BigEndian.Uint32(buf[i*4:]))
			data[i] = float64(v)*raw.bscale + raw.bzero
		}
	case -32:
		for i := range data {
			v := math.Float32frombits(binary.BigEndian.Uint32(buf[i*4:]))
			data[i] = float64(v)*raw.bscale + raw.bzero
		}
	case -64:
		for i := range data {
			v := math.Float64frombits(binary.BigEndian.Uint64(buf[i*8:]))
			data[i] = v*raw.bscale + raw.bzero
		}
	default:
		return nil, fmt.Errorf("%w: BITPIX=%d", ErrUnsupportedData, raw.bitpix)
	}
	return frame.FromData(rows, cols, data)
}

func skipData(r io.Reader, raw rawHeader) error {
	n := padded(raw.dataBytes())
	if n == 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return fmt.Errorf("skipping data section: %w", err)
	}
	return nil
}

func padded(n int64) int64 {
	if rem := n % blockSize; rem != 0 {
		return n + blockSize - rem
	}
	return n
}

func unquote(v string) string {
	if !strings.HasPrefix(v, "'") {
		return v
	}
	if end := strings.LastIndex(v[1:], "'"); end >= 0 {
		return strings.TrimRight(v[1:end+1], " ")
	}
	return strings.Trim(v, "' ")
}
