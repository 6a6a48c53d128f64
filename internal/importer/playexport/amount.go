package playexport

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	amountRun = regexp.MustCompile(`[0-9.,]+`)
	maxAmount = decimal.NewFromInt(math.MaxInt64)
)

// parseAmount extracts the price from free text such as "¥1,200" or
// "JPY 4,800.00". The first run of digits, commas and dots that contains a
// digit is used; thousands separators are dropped and the value is rounded to
// whole units. Text without such a run yields 0. A run that is not a number,
// or does not fit in int64, yields 0 and an error.
func parseAmount(s string) (int64, error) {
	for _, run := range amountRun.FindAllString(s, -1) {
		if !strings.ContainsAny(run, "0123456789") {
			continue
		}

		clean := strings.Trim(strings.ReplaceAll(run, ",", ""), ".")

		d, err := decimal.NewFromString(clean)
		if err != nil {
			return 0, err
		}

		return wholeUnits(d)
	}

	return 0, nil
}

// amountOf reads an entry's amount. JSON numbers, exponents included, are
// taken as they are; anything else goes through parseAmount.
func amountOf(v any) (int64, error) {
	n, ok := v.(json.Number)
	if !ok {
		return parseAmount(text(v))
	}

	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return 0, err
	}

	return wholeUnits(d)
}

// wholeUnits rounds d to whole currency units, rejecting values outside int64
// instead of wrapping them.
func wholeUnits(d decimal.Decimal) (int64, error) {
	d = d.Round(0)
	if d.Abs().GreaterThan(maxAmount) {
		return 0, fmt.Errorf("amount %s out of range", d)
	}

	return d.IntPart(), nil
}
