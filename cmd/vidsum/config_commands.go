package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vidsum/internal/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or scaffold vidsum daemon configuration",
	}
	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigShowCommand())
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := path
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				target = defaultPath
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			fmt.Printf("wrote sample configuration to %s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "Destination path (defaults to the standard config location)")
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Load and print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, resolvedPath, existed, err := config.Load(path)
			if err != nil {
				return err
			}
			if !existed {
				fmt.Printf("no config file at %s, showing defaults\n\n", resolvedPath)
			} else {
				fmt.Printf("config file: %s\n\n", resolvedPath)
			}
			fmt.Printf("work_dir:            %s\n", cfg.Paths.WorkDir)
			fmt.Printf("api_bind:            %s\n", cfg.Paths.APIBind)
			fmt.Printf("worker_count:        %d\n", cfg.Pipeline.WorkerCount)
			fmt.Printf("transcode_limit:     %d\n", cfg.Pipeline.TranscodeConcurrency)
			fmt.Printf("transcribe_limit:    %d\n", cfg.Pipeline.TranscribeConcurrency)
			fmt.Printf("profile_version:     %d\n", cfg.Cache.ProfileVersion)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "Configuration file path")
	return cmd
}
