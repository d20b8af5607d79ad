package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskmaster/todo/cmd/api/commands"
)

// @title Todo API
// @version 1.0
// @description Personal and team to-do lists with weekly routines and sharing

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	rootCmd := &cobra.Command{
		Use:           "todo",
		Short:         "Todo API server and command line client",
		Long:          `Todo keeps personal and team task lists, weekly routines and shared tasks. Run "todo serve" for the API, or use the client commands against a running server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Server commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewUserCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Client commands
	rootCmd.AddCommand(commands.NewRegisterCommand())
	rootCmd.AddCommand(commands.NewLoginCommand())
	rootCmd.AddCommand(commands.NewLogoutCommand())
	rootCmd.AddCommand(commands.NewTasksCommand())
	rootCmd.AddCommand(commands.NewRoutinesCommand())
	rootCmd.AddCommand(commands.NewShareCommand())
	rootCmd.AddCommand(commands.NewSharedCommand())
	rootCmd.AddCommand(commands.NewTeamsCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
