package main

import (
	"fmt"
	"text/tabwriter"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"stm32adc/core"
)

// newTimingCommand prints the clock tree and per-channel conversion timing
// the firmware derives from the profile.
func newTimingCommand(a *app) *cobra.Command {
	var minUS uint32
	cmd := &cobra.Command{
		Use:   "timing",
		Short: "Show ADC clock and conversion timing for the profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := a.profile
			res := p.Resolution()
			adcHz := p.ADCHz()
			st := core.SampleTimeForUS(res, adcHz, minUS)
			ns := core.NSForConfig(res, st, adcHz)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "board\t%s\n", p.Board)
			fmt.Fprintf(w, "variant\t%s\n", p.ChipVariant().Name)
			fmt.Fprintf(w, "pclk2\t%s\n", humanize.SIWithDigits(float64(p.PCLK2Hz), 2, "Hz"))
			fmt.Fprintf(w, "prescaler\t/%d\n", p.Prescaler().Divisor())
			fmt.Fprintf(w, "adc clock\t%s\n", humanize.SIWithDigits(float64(adcHz), 2, "Hz"))
			fmt.Fprintf(w, "resolution\t%s\n", res)
			fmt.Fprintf(w, "sample time\t%s\n", st)
			fmt.Fprintf(w, "conversion\t%d ns (%d us)\n", ns, core.USForConfig(res, st, adcHz))
			fmt.Fprintln(w)
			fmt.Fprintf(w, "pos\tname\tchannel\tscale\n")
			for i := range p.Channels {
				ch := p.ChannelAt(i)
				fmt.Fprintf(w, "%d\t%s\t%d\t%g\n", i+1, ch.Name, ch.Channel, ch.Scale)
			}
			scanNS := ns * uint64(len(p.Channels))
			fmt.Fprintln(w)
			fmt.Fprintf(w, "scan rate\t%s\n", humanize.SIWithDigits(1e9/float64(scanNS), 2, "Hz"))
			return w.Flush()
		},
	}
	cmd.Flags().Uint32Var(&minUS, "us", 0, "Minimum conversion time in microseconds")
	return cmd
}
