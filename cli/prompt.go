package cli

import (
	"errors"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
)

// Selector asks the user to pick one of items and returns its index.
type Selector func(label string, items []string) (int, error)

// Confirmer asks a yes/no question.
type Confirmer func(label string) (bool, error)

// PromptSelect is the terminal Selector. Typing filters items by prefix.
func PromptSelect(stdin io.ReadCloser, stdout io.WriteCloser) Selector {
	return func(label string, items []string) (int, error) {
		sel := &promptui.Select{
			Label: label,
			Items: items,
			Size:  len(items),
			Searcher: func(input string, index int) bool {
				return input != "" && strings.HasPrefix(strings.ToLower(items[index]), strings.ToLower(input))
			},
			Stdin:  stdin,
			Stdout: stdout,
		}

		idx, _, err := sel.Run()

		return idx, err
	}
}

// PromptConfirm is the terminal Confirmer. Answering no is not an error.
func PromptConfirm(stdin io.ReadCloser, stdout io.WriteCloser) Confirmer {
	return func(label string) (bool, error) {
		prompt := promptui.Prompt{
			Label:     label,
			IsConfirm: true,
			Stdin:     stdin,
			Stdout:    stdout,
		}

		if _, err := prompt.Run(); err != nil {
			if errors.Is(err, promptui.ErrAbort) {
				return false, nil
			}

			return false, err
		}

		return true, nil
	}
}
