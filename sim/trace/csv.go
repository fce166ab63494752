package trace

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var eventHeader = []string{"run_id", "seq", "time", "process", "wake"}

// WriteEventsCSV writes the event records of st as CSV with a header row.
func WriteEventsCSV(w io.Writer, st *SimulationTrace) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(eventHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	if st != nil {
		for _, e := range st.Events {
			row := []string{
				st.Config.RunID,
				strconv.FormatUint(e.Seq, 10),
				strconv.FormatFloat(e.Time, 'g', -1, 64),
				e.Process,
				e.Wake,
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing event %d: %w", e.Seq, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
