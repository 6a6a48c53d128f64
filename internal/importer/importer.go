package importer

import (
	"errors"
	"io"

	"github.com/MrJamesThe3rd/playledger/internal/purchase"
)

// Format names a supported import file format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatPlayJSON Format = "play-json"
)

// Formats lists the supported formats in the order they are offered to users.
var Formats = []Format{FormatCSV, FormatPlayJSON}

var ErrUnsupportedFormat = errors.New("unsupported import format")

// Importer normalizes one external file format into canonical purchases.
// The error return is reserved for files that cannot be read at all;
// problems with individual records end up in Batch.Warnings.
type Importer interface {
	Parse(r io.Reader) (*purchase.Batch, error)
}
