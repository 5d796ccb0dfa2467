// Package dump writes the opt-in CSV debug snapshot of the IP state
// table described in spec.md §6. The original writes this file
// unconditionally on every packet (original_source/src/antidote.c's
// dumpdata); spec.md §9 flags that as wasteful and calls for an opt-in
// interface instead, which is what Write provides.
package dump

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/jamescort/antidote-ng/internal/table"
)

var header = []string{"IP Address", "MAC Address", "Requests", "Replies", "Last Reset"}

// Write renders every record in tbl to w as CSV, in the format spec.md §6
// specifies: dotted-decimal IP, colon-hex MAC, and LastReset as seconds
// since the Unix epoch.
func Write(w io.Writer, tbl *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range tbl.Records() {
		row := []string{
			r.IPString(),
			r.MACString(),
			strconv.FormatUint(uint64(r.Requests), 10),
			strconv.FormatUint(uint64(r.Replies), 10),
			strconv.FormatInt(r.LastReset.Unix(), 10),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
