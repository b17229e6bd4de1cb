package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"ecoxchange/internal/client"
	"ecoxchange/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var apiURL string

var rootCmd = &cobra.Command{
	Use:   "ecoxchange-tui",
	Short: "Terminal client for the energy certificate marketplace",
	Long: `Signs in to an EcoXchange server and shows the marketplace in the
terminal. Press enter to sign in, tab to switch between the buyer and seller
views, and esc to quit.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		api := client.New(apiURL, &http.Client{Timeout: 3 * time.Minute})
		p := tea.NewProgram(tui.NewModel(api), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("tui: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&apiURL, "api", "http://localhost:1313", "marketplace server URL")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
