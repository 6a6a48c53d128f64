package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/playledger/internal/importer/csvfile"
	"github.com/MrJamesThe3rd/playledger/internal/purchase"
	"github.com/MrJamesThe3rd/playledger/internal/view"
)

// Service writes the ledger in the canonical CSV format read back by csvfile.
type Service struct{}

// NewService creates a new export Service.
func NewService() *Service {
	return &Service{}
}

// FileName returns the default name for an export taken at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("purchases_%s.csv", now.Format("20060102"))
}

// Export writes purchases as canonical CSV, header first.
func (s *Service) Export(ctx context.Context, w io.Writer, purchases []purchase.Purchase) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvfile.Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, p := range purchases {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := cw.Write(record(p)); err != nil {
			return fmt.Errorf("writing purchase %s: %w", p.ID, err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}

	return nil
}

// WriteFile exports purchases into dir under FileName(now) and returns the
// path written.
func (s *Service) WriteFile(ctx context.Context, dir string, now time.Time, purchases []purchase.Purchase) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path := filepath.Join(dir, FileName(now))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	if err := s.Export(ctx, f, purchases); err != nil {
		return "", err
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing file: %w", err)
	}

	return path, nil
}

// Summary renders one line per purchase for display after an export.
func (s *Service) Summary(purchases []purchase.Purchase) string {
	var sb strings.Builder

	for _, p := range purchases {
		sb.WriteString(fmt.Sprintf("* %s | %s | %s | %s\n",
			view.FormatDate(p.Date), p.Name, view.FormatPrice(p.Price, p.Currency), p.Category))
	}

	return sb.String()
}

func record(p purchase.Purchase) []string {
	return []string{
		p.ID,
		p.Name,
		strconv.FormatInt(p.Price, 10),
		p.Currency,
		p.Date.UTC().Format(time.RFC3339Nano),
		string(p.Category),
		p.Store,
		p.Icon,
	}
}
