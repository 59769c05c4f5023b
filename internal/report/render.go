package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Render writes r to w in the given format.
func Render(w io.Writer, r *Report, format string) error {
	switch format {
	case FormatText, "":
		return WriteText(w, r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(r), "report: encode json")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return eris.Wrap(err, "report: encode yaml")
		}
		return eris.Wrap(enc.Close(), "report: close yaml encoder")
	default:
		return eris.Errorf("report: unknown format %q", format)
	}
}

// WriteText writes an aligned plain-text report.
func WriteText(out io.Writer, r *Report) error {
	p := message.NewPrinter(language.English)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "Source:\t%s %s\n", r.Source.Kind, r.Source.Name)
	if r.RunID != "" {
		_, _ = fmt.Fprintf(w, "Run:\t%s\n", r.RunID)
	}
	if r.NoData {
		_, _ = fmt.Fprintln(w, "Result:\tno data")
		return eris.Wrap(w.Flush(), "report: flush")
	}

	if r.Period != nil {
		_, _ = fmt.Fprintf(w, "Period:\t%s ~ %s (cutoff %s)\n",
			r.Period.Start.Format("2006-01-02"),
			r.Period.End.Format("2006-01-02"),
			r.Period.Cutoff.Format("2006-01-02"))
	}
	if r.Filter != nil {
		_, _ = p.Fprintf(w, "Filtered:\t%d of %d rows (%.1f%%)\n", r.Filter.Kept, r.Filter.Original, r.Filter.Percent)
		if r.Filter.DuplicateIDs > 0 {
			_, _ = p.Fprintf(w, "Duplicate lesson ids:\t%d\n", r.Filter.DuplicateIDs)
		}
	}

	s := r.Summary
	_, _ = p.Fprintf(w, "Sessions:\t%d\n", s.Total)
	_, _ = p.Fprintf(w, "Churned:\t%d\n", s.Churned)
	_, _ = p.Fprintf(w, "Active:\t%d\n", s.Active)
	if s.Corrected > 0 {
		_, _ = p.Fprintf(w, "Corrected done_month:\t%d\n", s.Corrected)
	}
	_, _ = p.Fprintf(w, "AUC (%.0f months):\t%.2f months\n", s.HorizonMonths, s.AUC)
	_, _ = p.Fprintf(w, "Survival at %.0f months:\t%.1f%%\n", s.HorizonMonths, s.SurvivalAtHorizon*100)
	if imp := r.Improvement; imp != nil {
		pct := "n/a"
		if imp.Percent != nil {
			pct = fmt.Sprintf("%+.1f%%", *imp.Percent)
		}
		_, _ = p.Fprintf(w, "AUC target:\t%.2f months (%+.2f, %s)\n", imp.Improved, imp.Delta, pct)
	}
	if err := w.Flush(); err != nil {
		return eris.Wrap(err, "report: flush")
	}

	if len(s.Groups) > 0 {
		_, _ = fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "GROUP\tSAMPLES\tCHURN RATE\tAUC (%.0fM)\tMEDIAN\n", s.HorizonMonths)
		_, _ = fmt.Fprintln(w, "-----\t-------\t----------\t--------\t------")
		for _, g := range s.Groups {
			median := "not reached"
			if g.Median != nil {
				median = fmt.Sprintf("%.1f", *g.Median)
			}
			_, _ = p.Fprintf(w, "%s\t%d\t%.1f%%\t%.2f\t%s\n", g.Label, g.SampleSize, g.ChurnRate, g.AUC, median)
		}
		if err := w.Flush(); err != nil {
			return eris.Wrap(err, "report: flush")
		}
	}

	writeCounts(out, p, "Starts by month", r.StartsByMonth)
	return nil
}

func writeCounts(out io.Writer, p *message.Printer, title string, counts []PeriodCount) {
	if len(counts) == 0 {
		return
	}
	_, _ = fmt.Fprintf(out, "\n%s\n", title)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, c := range counts {
		_, _ = p.Fprintf(w, "%s\t%d\t\n", c.Period, c.Count)
	}
	_ = w.Flush()
}
