package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/climate-pipeline/internal/config"
	"github.com/sells-group/climate-pipeline/internal/ingest"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Resolve configured cities and rebuild the city dimension",
	Long:  "Geocodes every city in the cities file via Open-Meteo, writes one raw JSON artifact per resolved city, and fully rebuilds the dim_city warehouse table.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cities, err := config.LoadCities(cfg.Data.CitiesPath)
		if err != nil {
			return err
		}

		sum, err := ingest.RefreshCityDimension(ctx, newOpenMeteoClient(), cities,
			cfg.Data.RawGeocodingDir, cfg.Warehouse.Path)
		if err != nil {
			return err
		}

		fmt.Printf("Resolved %d/%d cities.\n", sum.Resolved, sum.Cities)
		if len(sum.Skipped) > 0 {
			fmt.Fprintf(os.Stderr, "Skipped (no geocoding match): %v\n", sum.Skipped)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
}
