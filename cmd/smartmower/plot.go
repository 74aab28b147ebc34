package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/smartmower/mower/internal/stats"
	"github.com/spf13/cobra"
)

var (
	plotOut   string
	plotTitle string
)

var plotCmd = &cobra.Command{
	Use:   "plot <stats.csv>...",
	Short: "Render learning curves from statistics files as HTML",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		series := make([]stats.Series, 0, len(args))
		for _, path := range args {
			rows, err := stats.ReadFile(path)
			if err != nil {
				return err
			}
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			series = append(series, stats.Series{Name: name, Rows: rows})
		}

		f, err := os.Create(plotOut)
		if err != nil {
			return fmt.Errorf("plot: %w", err)
		}
		if err := stats.Plot(f, plotTitle, series); err != nil {
			f.Close()
			return fmt.Errorf("plot: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		printOK(fmt.Sprintf("%d series written to %s", len(series), plotOut))
		return nil
	},
}

func init() {
	plotCmd.Flags().StringVarP(&plotOut, "out", "o", "curve.html", "output HTML file")
	plotCmd.Flags().StringVar(&plotTitle, "title", "SmartMower learning curve", "chart title")
}
