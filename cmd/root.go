package cmd

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"watchwire/internal/ui"
	"watchwire/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "watchwire",
	Short:   "Watch videos in sync with a friend over a direct peer connection",
	Long:    `WatchWire keeps two video players in lockstep across the internet. The host drives playback; play, pause, and seek commands travel over a direct WebRTC data channel so the other side mirrors them instantly. Peers find each other through a rendezvous room code or by exchanging connection codes manually.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
