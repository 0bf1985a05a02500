package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"watchwire/internal/peerlink"
	"watchwire/internal/ui"
)

var flagVideo string

var hostCmd = &cobra.Command{
	Use:     "host [video]",
	Aliases: []string{"h"},
	Short:   "Host a watch session",
	Long: `Host a watch session and drive playback for a connected friend.

Examples:
  watchwire host
  watchwire host movie.mp4
  watchwire host --manual
  watchwire host --server sync.example.com`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		video := flagVideo
		if len(args) == 1 {
			video = args[0]
		}
		return runHost(video)
	},
}

func runHost(video string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app := newWatchApp(cfg, peerlink.RoleHost, flagManual)
	defer app.Close()

	stopSpinner := ui.RunSpinner("Setting up host...")
	defer stopSpinner()
	app.ctrl.Connect("")

	token, err := app.waitForToken()
	if err != nil {
		return err
	}
	stopSpinner()

	if flagManual {
		fmt.Println(ui.TokenView("Your connection code (send it to your friend):", token))
		fmt.Println()

		fmt.Print("Paste your friend's answer code: ")
		answer, err := readLine()
		if err != nil {
			return err
		}
		app.ctrl.SupplyRemoteToken(answer)
	} else {
		ui.NewRoomInfo(token, cfg.Server).Render()
	}

	fmt.Println()
	stopSpinner = ui.RunWaitingSpinner("Waiting for peer to connect...")
	defer stopSpinner()
	if err := app.waitForOpen(); err != nil {
		return err
	}
	stopSpinner()

	ui.PrintSuccess("Client connected")

	if video != "" {
		app.player.Load(video)
	}

	if err := app.runWatchScreen(); err != nil {
		return err
	}

	app.printSummary()
	return nil
}

func readLine() (string, error) {
	reader := bufio.NewReaderSize(os.Stdin, 256*1024)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	return line, nil
}

func init() {
	rootCmd.AddCommand(hostCmd)

	addConnectionFlags(hostCmd)
	hostCmd.Flags().StringVarP(&flagVideo, "video", "v", "", "Video URL to load once the peer connects")
}
