package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/bwmarrin/discordgo"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/memohai/recap/internal/channel/adapters/discord"
	"github.com/memohai/recap/internal/config"
	"github.com/memohai/recap/internal/version"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "recap",
		Short:         "Discord assistant that answers questions and summarizes channel history",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(_ *cobra.Command, _ []string) error {
			runServe()
			return nil
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Connect to Discord and serve the health endpoint",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				runServe()
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "recap %s\n", version.GetInfo())
			},
		},
		newCommandsCommand(),
	)
	return root
}

// newCommandsCommand prints the slash command manifest that serve would
// register. It reads the config for the model list but needs no credentials.
func newCommandsCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "commands",
		Short: "Print the slash command manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			manifest := discord.Commands(cfg.Models.Supported)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(manifest)
			}
			printManifest(cmd.OutOrStdout(), manifest)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw registration payload")
	return cmd
}

func printManifest(w io.Writer, manifest []*discordgo.ApplicationCommand) {
	name := color.New(color.FgGreen, color.Bold).SprintFunc()
	opt := color.New(color.FgCyan).SprintFunc()
	for _, c := range manifest {
		fmt.Fprintf(w, "/%s  %s\n", name(c.Name), c.Description)
		for _, o := range c.Options {
			required := ""
			if o.Required {
				required = " (required)"
			}
			fmt.Fprintf(w, "    %s%s  %s\n", opt(o.Name), required, o.Description)
			for _, sub := range o.Options {
				fmt.Fprintf(w, "        %s  %s\n", opt(sub.Name), sub.Description)
			}
		}
	}
}
