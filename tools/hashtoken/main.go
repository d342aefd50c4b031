// Package main prints the bcrypt hash of an API token, suitable for the
// API_TOKEN_HASH setting.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	flag.Parse()

	hash, err := run(flag.Arg(0), os.Stdin, *cost)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hashtoken:", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}

// run hashes token, reading it from the first line of in when empty.
func run(token string, in io.Reader, cost int) (string, error) {
	if token == "" {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		token = strings.TrimRight(line, "\r\n")
	}
	if token == "" {
		return "", errors.New("empty token")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
