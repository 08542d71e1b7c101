// muxctl inspects and prunes the on-disk cache directory written by the file
// store: one directory per domain, one file per entity.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crontab/multiplexer/store"
)

var root string

func main() {
	rootCmd := &cobra.Command{
		Use:           "muxctl",
		Short:         "Inspect and prune a multiplexer file-store directory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&root, "root", ".", "file-store root directory")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "ls [domain]",
			Short: "List domains, or the entries of one domain",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if len(args) == 0 {
					return listDomains(cmd)
				}
				return listEntries(cmd, args[0])
			},
		},
		&cobra.Command{
			Use:   "rm <domain> <key>",
			Short: "Delete one persisted entry",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return store.NewFile(root).Delete(context.Background(), args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "clear <domain>",
			Short: "Delete every entry in a domain",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return store.NewFile(root).DeleteDomain(context.Background(), args[0])
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func listDomains(cmd *cobra.Command) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			cmd.Println(e.Name())
		}
	}
	return nil
}

func listEntries(cmd *cobra.Command, domain string) error {
	entries, err := os.ReadDir(filepath.Join(root, domain))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no such domain %q", domain)
		}
		return err
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, store.Ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		cmd.Printf("%s\t%d bytes\t%s\n",
			strings.TrimSuffix(name, store.Ext),
			info.Size(),
			info.ModTime().Format("2006-01-02 15:04:05"))
	}
	return nil
}
