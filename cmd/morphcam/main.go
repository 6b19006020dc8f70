package main

import (
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	// Required on macOS for OpenCV's highgui (window creation)
	runtime.LockOSThread()
}

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "morphcam",
	Short: "Real-time facial-identity morphing",
	Long: `morphcam reshapes a pre-authored target face onto faces detected in a
live video stream, preserving the real eyes and mouth, and composites the
result back into each frame.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
