package importer

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/MrJamesThe3rd/playledger/internal/importer/csvfile"
	"github.com/MrJamesThe3rd/playledger/internal/importer/playexport"
	"github.com/MrJamesThe3rd/playledger/internal/purchase"
)

type Service struct {
	csvImporter  Importer
	playImporter Importer
}

func NewService() *Service {
	return &Service{
		csvImporter:  csvfile.New(),
		playImporter: playexport.New(),
	}
}

func (s *Service) Import(format Format, r io.Reader) (*purchase.Batch, error) {
	var importer Importer

	switch format {
	case FormatCSV:
		importer = s.csvImporter
	case FormatPlayJSON:
		importer = s.playImporter
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	return importer.Parse(r)
}

// Detect guesses the format of a file from its name, falling back to the
// first non-space byte of its content.
func (s *Service) Detect(name string, head []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatPlayJSON, nil
	}

	trimmed := bytes.TrimLeft(head, " \t\r\n\xef\xbb\xbf")
	if len(trimmed) == 0 {
		return "", purchase.ErrEmptyFile
	}

	if trimmed[0] == '[' || trimmed[0] == '{' {
		return FormatPlayJSON, nil
	}

	return FormatCSV, nil
}
