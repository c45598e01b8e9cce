package store

import (
	"encoding/csv"
	"io"
	"strconv"

	apperr "github.com/Nestour97/dsp-scraper/pkg/errors"

	"github.com/Nestour97/dsp-scraper/internal/model"
)

// WriteCSV writes rows to w in the export column layout. Rows are
// written in the order given; callers sort beforehand.
func WriteCSV(w io.Writer, rows []model.PriceRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(model.ExportColumns); err != nil {
		return apperr.NewStore("writing csv header", err)
	}

	for _, row := range rows {
		value := ""
		if row.PriceValue != nil {
			value = row.PriceValue.String()
		}
		record := []string{
			row.Country,
			row.CountryCode,
			row.Currency,
			row.CurrencyRaw,
			string(row.Plan),
			row.PriceDisplay,
			value,
			row.Source,
			strconv.FormatBool(row.Redirected),
			row.RedirectedTo,
			row.RedirectReason,
			row.SourceURL,
			strconv.FormatBool(row.HasPage),
		}
		if err := cw.Write(record); err != nil {
			return apperr.NewStore("writing csv row", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return apperr.NewStore("flushing csv", err)
	}
	return nil
}
