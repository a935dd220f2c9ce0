package commands

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "streamer",
	Short: "EEG headset emulator and stream client",
	Long: `streamer - emulates a 4-channel EEG headset and feeds the
monitoring service.

The emulator produces a continuous 256 Hz signal shaped by the chosen
cognitive profile, runs each one-second window through the same spectral
pipeline the server uses and posts the result to /api/v1/eeg/stream.

Examples:
  # Stream a drowsy driver into a new session for two minutes
  streamer stream --state drowsy --duration 2m

  # Stream into an existing session, skipping calibration
  streamer stream --session-id 7b8a3f84-1f9c-4d36-a6a1-0f1de2c5b901 --no-calibrate`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute запускает корневую команду
func Execute() error {
	return rootCmd.Execute()
}
