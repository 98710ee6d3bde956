package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/envirowatch/envirowatch/internal/geodist"
	"github.com/envirowatch/envirowatch/internal/model"
)

var (
	searchLat    float64
	searchLng    float64
	searchRadius int
	searchMax    int
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find technology facilities around a point and score their impact",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		center := model.Coordinate{Lat: searchLat, Lng: searchLng}
		if !center.Valid() {
			return eris.Errorf("coordinates out of range: lat=%f lng=%f", searchLat, searchLng)
		}

		if searchRadius > 0 {
			cfg.Search.RadiusMeters = searchRadius
		}
		if cmd.Flags().Changed("max") {
			cfg.Search.MaxResults = searchMax
		}

		env, err := initSearchEnv(cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Aggregator.Aggregate(ctx, center)
		if err != nil {
			return eris.Wrap(err, "search")
		}

		zap.L().Info("search complete",
			zap.Int("facilities", len(res.Facilities)),
			zap.Strings("queried", res.ProvidersQueried),
			zap.Strings("failed", res.ProvidersFailed),
		)

		if searchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res.Facilities)
		}

		if len(res.Facilities) == 0 {
			fmt.Println("No facilities found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tOPERATOR\tSOURCE\tIMPACT\tSCORE\tDISTANCE")
		for _, f := range res.Facilities {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.1f km\n",
				f.Name,
				f.Operator,
				f.Source,
				f.ImpactCategory,
				f.ImpactScore,
				geodist.HaversineMeters(center, f.Position)/1000,
			)
		}
		return w.Flush()
	},
}

func init() {
	searchCmd.Flags().Float64Var(&searchLat, "lat", 47.62, "center latitude")
	searchCmd.Flags().Float64Var(&searchLng, "lng", -122.35, "center longitude")
	searchCmd.Flags().IntVar(&searchRadius, "radius", 0, "search radius in meters (default from config)")
	searchCmd.Flags().IntVar(&searchMax, "max", 0, "cap on merged results, 0 for uncapped")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "emit JSON instead of a table")
	rootCmd.AddCommand(searchCmd)
}
