// Command token mints a bearer token for the server's token identity mode.
//
//	token -sub 'auth0|123' -email a@example.com -ttl 30m
//	token -new-secret
//
// The signing secret is taken from $BITCOR_SECRET_KEY, prompted for without
// echo on a terminal, or read as one line from piped stdin.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/bitcor/internal/common"
	"github.com/dmitrijs2005/bitcor/internal/server/auth"
	"golang.org/x/term"
)

const secretEnvVar = "BITCOR_SECRET_KEY"

// test seams
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdin *os.File, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	subject := fs.String("sub", "", "external subject (required)")
	email := fs.String("email", "", "email claim")
	ttl := fs.Duration("ttl", 60*time.Minute, "token validity")
	newSecret := fs.Bool("new-secret", false, "print a random signing secret and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *newSecret {
		s, err := common.MakeRandHexString(32)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, s)
		return nil
	}

	if strings.TrimSpace(*subject) == "" {
		return errors.New("-sub is required")
	}

	secret, err := readSecret(stdin, stderr)
	if err != nil {
		return fmt.Errorf("read secret: %w", err)
	}
	defer common.WipeByteArray(secret)
	if len(secret) == 0 {
		return errors.New("empty signing secret")
	}

	tok, err := auth.GenerateToken(strings.TrimSpace(*subject), *email, secret, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, tok)
	return nil
}

func readSecret(stdin *os.File, prompt io.Writer) ([]byte, error) {
	if v := os.Getenv(secretEnvVar); v != "" {
		return []byte(v), nil
	}

	fd := int(stdin.Fd())
	if isTerminal(fd) {
		fmt.Fprint(prompt, "Signing secret: ")
		b, err := readPassword(fd)
		fmt.Fprintln(prompt)
		return b, err
	}

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return []byte(strings.TrimSpace(line)), nil
}
