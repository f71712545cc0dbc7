package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	humanize "github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"stm32adc/host/monitor"
	"stm32adc/host/record"
)

var errReplayLimit = errors.New("replay limit reached")

func newReplayCommand(a *app) *cobra.Command {
	var dbPath string
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Print readings stored by stream --record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = a.profile.RecordPath
			}
			if dbPath == "" {
				return errors.New("no database given (use --db or recordPath in the profile)")
			}
			rec, err := record.Open(dbPath)
			if err != nil {
				return maskAny(err)
			}
			defer rec.Close()

			board, err := rec.Board()
			if err != nil {
				return maskAny(err)
			}
			total, err := rec.Count()
			if err != nil {
				return maskAny(err)
			}
			out := cmd.OutOrStdout()
			a.log.Debug().Str("board", board).Int("readings", total).Msg("Replaying")

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			enc := json.NewEncoder(out)
			shown := 0
			err = rec.Replay(context.Background(), func(id uint64, rd *monitor.Reading) error {
				if limit > 0 && shown >= limit {
					return errReplayLimit
				}
				shown++
				if asJSON {
					return enc.Encode(rd)
				}
				fmt.Fprintf(w, "%d\t%s\t%d\t%.3fV\t%s\n", id, rd.Time.Format("15:04:05.000"), rd.Generation,
					float64(rd.VddaUV)/1e6, formatVolts(rd))
				return nil
			})
			if err != nil && err != errReplayLimit {
				return maskAny(err)
			}
			if !asJSON {
				fmt.Fprintf(w, "\n%s of %s readings from %s\n", humanize.Comma(int64(shown)), humanize.Comma(int64(total)), boardName(board))
				return w.Flush()
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "Database written by stream --record")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many readings (0 = all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print one JSON object per reading")
	return cmd
}

func formatVolts(rd *monitor.Reading) string {
	parts := make([]string, len(rd.Volts))
	for i, v := range rd.Volts {
		name := "?"
		if i < len(rd.Channels) {
			name = rd.Channels[i]
		}
		parts[i] = fmt.Sprintf("%s=%.4f", name, v)
	}
	return strings.Join(parts, " ")
}

func boardName(board string) string {
	if board == "" {
		return "unknown board"
	}
	return board
}
