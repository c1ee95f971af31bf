package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"github.com/plutoqz/ruoyi-f/internal/config"
	"github.com/plutoqz/ruoyi-f/internal/coord"
	"github.com/plutoqz/ruoyi-f/internal/landuse"
	"github.com/plutoqz/ruoyi-f/internal/layerio"
	"github.com/plutoqz/ruoyi-f/internal/middleware"
	"github.com/plutoqz/ruoyi-f/internal/penalty"
)

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func newTransformCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "transform [file.geojson]",
		Short: "rewrite GeoJSON coordinates between wgs84, gcj02, bd09 and epsg3857",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fn, ok := coord.ByName(from, to)
			if !ok {
				return fmt.Errorf("unknown crs pair %q -> %q", from, to)
			}
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			b, err := readInput(cmd, path)
			if err != nil {
				return err
			}
			out, err := coord.TransformGeoJSONBytes(b, fn)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	cmd.Flags().StringVar(&from, "from", coord.WGS84, "source crs")
	cmd.Flags().StringVar(&to, "to", coord.GCJ02, "target crs")
	return cmd
}

func newPointCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "point <lng> <lat>",
		Short: "convert a single coordinate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fn, ok := coord.ByName(from, to)
			if !ok {
				return fmt.Errorf("unknown crs pair %q -> %q", from, to)
			}
			lng, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("lng: %w", err)
			}
			lat, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("lat: %w", err)
			}
			x, y := fn(lng, lat)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%.8f %.8f\n", x, y)
			return err
		},
	}
	cmd.Flags().StringVar(&from, "from", coord.WGS84, "source crs")
	cmd.Flags().StringVar(&to, "to", coord.GCJ02, "target crs")
	return cmd
}

func newEvaluateCmd() *cobra.Command {
	var (
		d             penalty.Details
		violationType string
		center        string
		asJSON        bool
	)
	cmd := &cobra.Command{
		Use:   "evaluate --type <violation-type>",
		Short: "evaluate the penalty for a violation and print the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if center != "" {
				c, err := parseFloats(center, 2)
				if err != nil {
					return fmt.Errorf("center: %w", err)
				}
				d.Center = [2]float64{c[0], c[1]}
			}
			res := penalty.Evaluate(violationType, d)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), res.Report)
			if err == nil && res.RuleID == "" {
				err = fmt.Errorf("no rule for %q", violationType)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&violationType, "type", "", "violation type label (see rules)")
	cmd.Flags().StringVar(&d.Name, "name", "图斑", "parcel name")
	cmd.Flags().Float64Var(&d.Area, "area", 0, "area in square metres")
	cmd.Flags().StringVar(&d.LandType, "land-type", "", "耕地 | 基本农田 | 其他土地")
	cmd.Flags().Float64Var(&d.IllegalIncome, "illegal-income", 0, "illegal income in yuan")
	cmd.Flags().StringVar(&center, "center", "", "lng,lat (WGS84)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "list violation types and their rule ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, l := range penalty.Labels() {
				r, _ := penalty.Lookup(l)
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", r.ID, l); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	var o layerio.Options
	var outPath string
	cmd := &cobra.Command{
		Use:   "import-shp <file.shp|file.zip>",
		Short: "convert a shapefile to WGS84 GeoJSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := layerio.ReadFile(args[0], o)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if outPath != "" && outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := writeJSON(w, res.Collection); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d features (%s, %s), %d skipped\n", res.Features, res.GeometryType, res.Encoding, res.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&o.CRS, "crs", coord.WGS84, "source crs of the shapefile")
	cmd.Flags().StringVar(&o.Encoding, "encoding", layerio.EncodingAuto, "attribute encoding: auto | utf8 | gbk | gb18030")
	cmd.Flags().IntVar(&o.MaxFeatures, "max-features", 0, "abort above this many features (0 = 50000)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newLanduseCmd(cfg config.Config) *cobra.Command {
	var bbox, endpoint string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "landuse --bbox minLng,minLat,maxLng,maxLat",
		Short: "suggest a land type from OpenStreetMap landuse tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseFloats(bbox, 4)
			if err != nil {
				return fmt.Errorf("bbox: %w", err)
			}
			if v[0] >= v[2] || v[1] >= v[3] {
				return errors.New("bbox: min must be below max")
			}
			svc := landuse.NewOverpass(endpoint, timeout)
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout+5*time.Second)
			defer cancel()
			sg, err := svc.SuggestBound(ctx, orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), sg)
		},
	}
	cmd.Flags().StringVar(&bbox, "bbox", "", "WGS84 bounding box")
	cmd.Flags().StringVar(&endpoint, "endpoint", cfg.OverpassURL, "overpass interpreter url")
	cmd.Flags().DurationVar(&timeout, "timeout", cfg.OverpassTimeout, "query timeout")
	_ = cmd.MarkFlagRequired("bbox")
	return cmd
}

func newTokenCmd(cfg config.Config) *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "issue an API bearer token signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is empty")
			}
			tok, err := middleware.IssueToken(cfg.JWTSecret, subject, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject (operator id)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d comma-separated numbers, got %d", n, len(parts))
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
