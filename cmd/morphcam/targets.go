package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dudu/morphcam/internal/target"
)

var targetsDir string

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Validate and list the targets in a folder",
	RunE: func(cmd *cobra.Command, args []string) error {
		assets, err := target.LoadAll(targetsDir)
		if err != nil {
			return err
		}
		defer func() {
			for _, a := range assets {
				a.Close()
			}
		}()

		for _, a := range assets {
			fmt.Printf("%-20s %dx%d  %d landmarks  %d triangles\n",
				a.Name, a.Image.Cols(), a.Image.Rows(), len(a.Points), len(a.Triangles))
		}
		return nil
	},
}

func init() {
	targetsCmd.Flags().StringVarP(&targetsDir, "targets", "t", "Targets", "folder with target images and sidecar JSON files")
	rootCmd.AddCommand(targetsCmd)
}
