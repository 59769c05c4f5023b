// Package export writes derived sessions out of a run, either as CSV or
// into a Postgres table.
package export

import (
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/retention-cli/internal/model"
)

// SessionsCSV writes upload sessions with their churn verdict as CSV,
// header first.
func SessionsCSV(w io.Writer, sessions []model.Session) error {
	return encodeCSV(w, sessions)
}

// SheetSessionsCSV writes worksheet sessions with their bucketed duration
// as CSV, header first.
func SheetSessionsCSV(w io.Writer, sessions []model.SheetSession) error {
	return encodeCSV(w, sessions)
}

func encodeCSV[T any](w io.Writer, rows []T) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if len(rows) == 0 {
		var zero T
		if err := enc.EncodeHeader(zero); err != nil {
			return eris.Wrap(err, "export: encode header")
		}
	}
	for i := range rows {
		if err := enc.Encode(rows[i]); err != nil {
			return eris.Wrapf(err, "export: encode row %d", i)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}
