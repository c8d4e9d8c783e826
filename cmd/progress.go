package cmd

import "github.com/pterm/pterm"

// progresser advertises the progress of a mailbox operation on a terminal
// progress bar. With no terminal to draw on it stays silent.
type progresser struct {
	pbar *pterm.ProgressbarPrinter
}

// startProgress opens a progress bar sized for the mailbox.
func startProgress(total uint32) *progresser {
	pbar, _ := pterm.DefaultProgressbar.WithTotal(int(total)).Start()
	return &progresser{
		pbar: pbar,
	}
}

func (p *progresser) Increment() {
	if p.pbar == nil {
		return
	}
	p.pbar.Increment()
}

func (p *progresser) Stop() {
	if p.pbar == nil {
		return
	}
	_, _ = p.pbar.Stop()
}
