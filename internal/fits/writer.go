package fits

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"

	"specred/internal/frame"
)

// Card is one extra header entry to write after the mandatory cards.
// Values are written as FITS strings unless they parse as plain numbers.
type Card struct {
	Key   string
	Value string
}

// Write persists a frame as a single-HDU FITS image with BITPIX=-64 and no
// scaling, so a read round-trips the pixels exactly.
func Write(path string, f *frame.Frame, cards []Card) error {
	if f.Empty() {
		return fmt.Errorf("refusing to write empty frame to %s", path)
	}
	rows, cols := f.Shape()

	var hdr []byte
	hdr = appendCard(hdr, "SIMPLE", "T")
	hdr = appendCard(hdr, "BITPIX", "-64")
	hdr = appendCard(hdr, "NAXIS", "2")
	hdr = appendCard(hdr, "NAXIS1", fmt.Sprint(cols))
	hdr = appendCard(hdr, "NAXIS2", fmt.Sprint(rows))
	for _, c := range cards {
		hdr = appendCard(hdr, c.Key, formatValue(c.Value))
	}
	hdr = append(hdr, pad80("END")...)
	if rem := len(hdr) % blockSize; rem != 0 {
		hdr = append(hdr, strings.Repeat(" ", blockSize-rem)...)
	}

	data := f.Data()
	body := make([]byte, padded(int64(len(data)*8)))
	for i, v := range data {
		binary.BigEndian.PutUint64(body[i*8:], math.Float64bits(v))
	}

	tmp := path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating FITS file: %w", err)
	}
	if _, err := out.Write(hdr); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing FITS header: %w", err)
	}
	if _, err := out.Write(body); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing FITS data: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing FITS file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publishing FITS file: %w", err)
	}
	return nil
}

func appendCard(hdr []byte, key, value string) []byte {
	card := fmt.Sprintf("%-8s= %20s", key, value)
	return append(hdr, pad80(card)...)
}

func pad80(s string) []byte {
	if len(s) > recordSize {
		s = s[:recordSize]
	}
	return []byte(s + strings.Repeat(" ", recordSize-len(s)))
}

// formatValue quotes non-numeric values the FITS way.
func formatValue(v string) string {
	if v == "" {
		return "''"
	}
	numeric := true
	for _, r := range v {
		if (r < '0' || r > '9') && r != '.' && r != '-' && r != '+' && r != 'e' && r != 'E' {
			numeric = false
			break
		}
	}
	if numeric {
		return v
	}
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}
