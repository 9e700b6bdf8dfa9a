// Package setup holds the interactive helpers run from the command line.
package setup

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"obot/internal/errs"
	"obot/internal/logger"
	"obot/internal/security"
)

const banner = `
    ███╗   ███╗██████╗  ██████╗ ████████╗
    ████╗ ████║██╔══██╗██╔═══██╗╚══██╔══╝
    ██╔████╔██║██████╔╝██║   ██║   ██║
    ██║╚██╔╝██║██╔══██╗██║   ██║   ██║
    ██║ ╚═╝ ██║██████╔╝╚██████╔╝   ██║
    ╚═╝     ╚═╝╚═════╝  ╚═════╝    ╚═╝
    `

// PromptPassphraseHash asks twice for an admin passphrase and returns its
// argon2id hash, ready to paste into irc_admin_hash.
func PromptPassphraseHash(in io.Reader, out io.Writer) (string, error) {
	cyan := logger.GetColorFunc("cyan")
	green := logger.GetColorFunc("green")
	yellow := logger.GetColorFunc("yellow")
	blue := logger.GetColorFunc("blue")
	white := logger.GetColorFunc("white")

	fmt.Fprintln(out, cyan(banner))
	fmt.Fprintln(out, blue("╔═══════════════════════════════════════════════╗"))
	fmt.Fprintln(out, blue("║         ")+yellow("ADMIN PASSPHRASE SETUP")+blue("                ║"))
	fmt.Fprintln(out, blue("╚═══════════════════════════════════════════════╝"))
	fmt.Fprintln(out)

	reader := bufio.NewReader(in)

	fmt.Fprint(out, blue("[1/2] ")+white("Enter a passphrase: "))
	first, err := readLine(reader)
	if err != nil {
		return "", err
	}
	if first == "" {
		return "", fmt.Errorf("empty passphrase: %w", errs.ErrInvalidArgument)
	}

	fmt.Fprint(out, blue("[2/2] ")+white("Repeat the passphrase: "))
	second, err := readLine(reader)
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("passphrases do not match: %w", errs.ErrInvalidArgument)
	}

	hash, err := security.HashPassphrase(first)
	if err != nil {
		return "", err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, green("✓ ")+white("Add this line to the [[bot]] table:"))
	fmt.Fprintf(out, "%s\n", yellow(fmt.Sprintf("irc_admin_hash = %q", hash)))
	fmt.Fprintln(out, white("Then message the bot: ")+yellow("/msg <nick> !auth <passphrase>"))
	return hash, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return strings.TrimSpace(line), nil
}
