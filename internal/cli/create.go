package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/infographics/pkg/errors"
	"github.com/matzehuels/infographics/pkg/geometry"
	"github.com/matzehuels/infographics/pkg/infographics"
)

// createCommand creates the create command.
func (c *CLI) createCommand() *cobra.Command {
	var (
		geometryFiles []string
		points        []string
		output        string
		format        string
	)

	cmd := &cobra.Command{
		Use:   "create <infographic-id>",
		Short: "Render an infographic for one or more study areas",
		Long: `Render an infographic and save it to a local file.

The infographic is a standard report id (see 'infographics standard') or the
item id of an organization template (see 'infographics custom'). Study areas
are Esri JSON geometry files or longitude,latitude points; each flag may be
repeated. The output file gets the format's extension unless it already has
it (".htm" is accepted for html).`,
		Example: `  infographics create AtRisk --point -117.1956,34.0564 -o redlands
  infographics create 0123456789abcdef0123456789abcdef --geometry tract.json -o tract.xlsx --format xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			areas, err := loadStudyAreas(geometryFiles, points)
			if err != nil {
				return err
			}
			f, err := infographics.ParseExportFormat(format)
			if err != nil {
				return err
			}
			if output == "" {
				output = args[0]
			}

			cat, closeCat, err := c.newCatalog(ctx)
			if err != nil {
				return err
			}
			defer closeCat()

			c.Logger.Debug("rendering infographic", "id", args[0], "kind", infographicKind(args[0]), "areas", len(areas))
			spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", args[0]))
			prog := newProgress(loggerFromContext(ctx))
			var path string
			err = spinner.run(func() (err error) {
				path, err = cat.CreateInfographic(ctx, infographics.CreateRequest{
					StudyAreas:    areas,
					InfographicID: args[0],
					OutPath:       output,
					Format:        f,
				})
				return err
			})
			if err != nil {
				return err
			}
			prog.done("Rendered infographic")

			printSuccess("Created %s %s infographic", strings.ToUpper(string(f)), infographicKind(args[0]))
			printFile(path)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&geometryFiles, "geometry", nil, "Esri JSON geometry file (repeatable)")
	cmd.Flags().StringArrayVar(&points, "point", nil, "study area point as lon,lat (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: the infographic id)")
	cmd.Flags().StringVarP(&format, "format", "f", string(infographics.DefaultFormat), "export format: pdf, xlsx or html")
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		out := make([]string, len(infographics.Formats))
		for i, f := range infographics.Formats {
			out[i] = string(f)
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// infographicKind tells organization templates, addressed by portal item
// id, from standard report ids.
func infographicKind(id string) string {
	if errors.IsItemID(id) {
		return infographics.CategoryCustom
	}
	return infographics.CategoryStandard
}

// loadStudyAreas reads geometry files and parses points, files first.
func loadStudyAreas(files, points []string) ([]geometry.Geometry, error) {
	if len(files) == 0 && len(points) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidGeometry, "at least one --geometry or --point is required")
	}

	areas := make([]geometry.Geometry, 0, len(files)+len(points))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read geometry file")
		}
		g, err := geometry.Parse(data)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidGeometry, err, "%s", path)
		}
		areas = append(areas, g)
	}
	for _, p := range points {
		pt, err := parsePoint(p)
		if err != nil {
			return nil, err
		}
		areas = append(areas, pt)
	}
	return areas, nil
}

// parsePoint parses "lon,lat" into a WGS84 point.
func parsePoint(s string) (*geometry.Point, error) {
	lonStr, latStr, ok := strings.Cut(s, ",")
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidGeometry, "point must be lon,lat: %q", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGeometry, err, "point longitude %q", lonStr)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGeometry, err, "point latitude %q", latStr)
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return nil, errors.New(errors.ErrCodeInvalidGeometry, "point %q is outside lon/lat range", s)
	}
	return geometry.NewPoint(lon, lat), nil
}
