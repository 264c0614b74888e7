package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/console/prompt"
	"golang.org/x/term"

	"github.com/mantlenetworkio/gasless/op-gasless/gasless"
)

// Prompter asks the user a yes/no question.
type Prompter interface {
	PromptConfirm(question string) (bool, error)
}

// terminalPrompter refuses to prompt when stdin is not a terminal,
// since nobody could answer and the run would hang.
type terminalPrompter struct {
	prompt     Prompter
	isTerminal func() bool
}

func newTerminalPrompter() *terminalPrompter {
	return &terminalPrompter{
		prompt: prompt.Stdin,
		isTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

func (p *terminalPrompter) PromptConfirm(question string) (bool, error) {
	if !p.isTerminal() {
		return false, fmt.Errorf("%w: stdin is not a terminal, pass --skip-prompt to relay without confirmation", gasless.ErrInput)
	}
	return p.prompt.PromptConfirm(question)
}
