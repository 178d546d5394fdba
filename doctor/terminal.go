package doctor

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Interactive reports whether stdin is a terminal a person can answer from.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Prompt returns a Confirm that reads y/n answers from stdin. The terminal
// is put back into the state it had when Prompt was called before every
// question, since hotkey grabs can leave it raw.
func Prompt(out io.Writer) func(string) bool {
	fd := int(os.Stdin.Fd())
	saved, err := term.GetState(fd)
	if err != nil {
		saved = nil
	}
	return func(question string) bool {
		if saved != nil {
			term.Restore(fd, saved)
		}
		fmt.Fprintf(out, "%s [y/n]: ", question)
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	}
}
