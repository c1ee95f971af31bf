// geotool：坐标转换、处罚评估、Shapefile 导入与用地建议的命令行入口
package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/plutoqz/ruoyi-f/internal/config"
	"github.com/plutoqz/ruoyi-f/internal/logger"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var level string
	cfg := config.Load()
	root := &cobra.Command{
		Use:           "geotool",
		Short:         "geospatial helpers for land-enforcement cases",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.New(os.Stderr, level, cfg.LogFormat)
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&level, "log-level", "warn", "debug | info | warn | error")
	root.AddCommand(
		newTransformCmd(),
		newPointCmd(),
		newEvaluateCmd(),
		newRulesCmd(),
		newImportCmd(),
		newLanduseCmd(cfg),
		newTokenCmd(cfg),
	)
	return root
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
