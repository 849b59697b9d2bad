package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/guiyumin/bgscribe/internal/core/i18n"
	"golang.org/x/term"
)

// errInvalidMinutes is returned for chunk lengths that are not positive numbers.
var errInvalidMinutes = errors.New("invalid chunk length")

// prompter reads answers line by line. Secrets are read without echo when
// the input is a terminal.
type prompter struct {
	in  *bufio.Reader
	out io.Writer

	// fd is the terminal file descriptor, or -1
	fd int
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
	}
	return p
}

// ask prints prompt and returns the trimmed answer.
func (p *prompter) ask(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// askDefault is ask with a fallback for an empty answer.
func (p *prompter) askDefault(prompt, def string) (string, error) {
	answer, err := p.ask(prompt)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

func (p *prompter) askSecret(prompt string) (string, error) {
	if p.fd < 0 {
		return p.ask(prompt)
	}
	fmt.Fprint(p.out, prompt)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// confirmCleanup returns the callback asked before generated chunks are
// deleted. Anything but a yes token, including a read error, keeps them.
func (p *prompter) confirmCleanup(tr *i18n.Translations) func(n int) bool {
	return func(n int) bool {
		answer, err := p.ask(fmt.Sprintf(tr.Prompt.Cleanup, n))
		if err != nil {
			fmt.Fprintln(p.out)
			return false
		}
		return tr.IsYes(answer)
	}
}

// parseMinutes parses a chunk length, using def for an empty answer.
// Both "3.07" and "3,07" are accepted.
func parseMinutes(answer string, def float64) (float64, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return def, nil
	}
	m, err := strconv.ParseFloat(strings.Replace(answer, ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errInvalidMinutes, answer)
	}
	if err := checkMinutes(m); err != nil {
		return 0, err
	}
	return m, nil
}

// checkMinutes rejects zero, negative and non-finite chunk lengths.
func checkMinutes(m float64) error {
	if m <= 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return fmt.Errorf("%w: %v", errInvalidMinutes, m)
	}
	return nil
}
