package cmd

import (
	"errors"
	"fmt"

	"github.com/creativeprojects/imapfetch/store"
	"github.com/creativeprojects/imapfetch/term"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Save a copy of a local store file",
	RunE:  runBackup,
}

func init() {
	rootCmd.AddCommand(backupCmd)
}

func runBackup(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		return errors.New("needs an account name and a destination file")
	}
	accountName := args[0]
	account, ok := config.Accounts[accountName]
	if !ok {
		return fmt.Errorf("account not found: %s", accountName)
	}
	backend, err := NewBackend(account, nil)
	if err != nil {
		return fmt.Errorf("cannot open backend: %w", err)
	}
	defer backend.Close()

	boltStore, ok := backend.(*store.BoltStore)
	if !ok {
		return fmt.Errorf("cannot backup a %q account", account.Type)
	}

	filename := args[1]
	err = boltStore.Backup(filename)
	if err != nil {
		return fmt.Errorf("cannot backup store: %w", err)
	}
	term.Infof("store saved to %s", filename)
	return nil
}
