package cmd

import (
	"github.com/creativeprojects/imapfetch/cfg"
	"github.com/creativeprojects/imapfetch/lib"
	"github.com/creativeprojects/imapfetch/storage"
	"github.com/creativeprojects/imapfetch/term"
)

// NewBackend opens the backend described by the account configuration.
// With a nil logger, debugging information is only displayed in verbose mode.
func NewBackend(account cfg.Account, logger lib.Logger) (storage.Backend, error) {
	if logger == nil && global.verbose {
		logger = term.Logger()
	}
	return storage.NewBackend(account, logger)
}
