package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/developmentseed/labs-gpt-stac/framework"
)

func newGeocodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "geocode [place]",
		Short: "Print the bounding box of a place name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if globalCfg.Tools.GeocodeAPIKey == "" {
				return fmt.Errorf("%w: OPENCAGE_API_KEY is required", framework.ErrConfiguration)
			}
			place := strings.Join(args, " ")
			bounds, err := newGeocoder(globalCfg).Geocode(cmd.Context(), place)
			if err != nil {
				return err
			}
			if bounds == nil {
				return fmt.Errorf("%w: no geocoding result for %q", framework.ErrNotFound, place)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "bbox=%s\n", bounds.BBox())
			return nil
		},
	}
}
