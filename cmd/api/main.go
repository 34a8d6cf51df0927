package main

import (
	"os"

	"github.com/spf13/cobra"
)

// @title           AlmeOne Contact API
// @version         1.0
// @description     Relays website contact form submissions as email notifications.
// @host            localhost:8080
// @BasePath        /api
func main() {
	rootCmd := &cobra.Command{
		Use:          "contact-api",
		Short:        "AlmeOne contact form relay",
		Long:         "Receives contact form submissions and relays them as email notifications.",
		SilenceUsage: true,
		RunE:         serveCmd().RunE,
	}

	rootCmd.AddCommand(serveCmd(), testEmailCmd(), configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
