package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"watchwire/internal/peerlink"
	"watchwire/internal/ui"
)

var joinCmd = &cobra.Command{
	Use:     "join [room-id]",
	Aliases: []string{"j"},
	Short:   "Join a friend's watch session",
	Long: `Join a watch session and mirror the host's playback.

Examples:
  watchwire join mellow-otter-stardust
  watchwire join --manual
  watchwire join --server sync.example.com happy-fox-meadow`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagManual {
			return runJoinManual(args)
		}
		if len(args) != 1 {
			return fmt.Errorf("room id required, e.g. watchwire join mellow-otter-stardust")
		}
		return runJoin(args[0])
	},
}

func runJoin(roomID string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app := newWatchApp(cfg, peerlink.RoleClient, false)
	defer app.Close()

	stopSpinner := ui.RunConnectionSpinner("Connecting to host...")
	defer stopSpinner()
	app.ctrl.Connect(roomID)

	if err := app.waitForOpen(); err != nil {
		return err
	}
	stopSpinner()

	ui.PrintSuccess("Connected to host")

	if err := app.runWatchScreen(); err != nil {
		return err
	}

	app.printSummary()
	return nil
}

func runJoinManual(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app := newWatchApp(cfg, peerlink.RoleClient, true)
	defer app.Close()

	offer := ""
	if len(args) == 1 {
		offer = args[0]
	} else {
		fmt.Print("Paste the host's connection code: ")
		offer, err = readLine()
		if err != nil {
			return err
		}
	}

	app.ctrl.Connect(offer)

	answer, err := app.waitForToken()
	if err != nil {
		return err
	}

	fmt.Println(ui.TokenView("Your answer code (send it back to the host):", answer))
	fmt.Println()

	stopSpinner := ui.RunWaitingSpinner("Waiting for the host to accept...")
	defer stopSpinner()
	if err := app.waitForOpen(); err != nil {
		return err
	}
	stopSpinner()

	ui.PrintSuccess("Connected to host")

	if err := app.runWatchScreen(); err != nil {
		return err
	}

	app.printSummary()
	return nil
}

func init() {
	rootCmd.AddCommand(joinCmd)

	addConnectionFlags(joinCmd)
}
