// Command token mints a bearer token for a write-protected server.
//
//	JWT_SECRET=... go run ./cmd/token -sub alice -ttl 720h
//
// The token is printed on stdout; send it as "Authorization: Bearer <token>".
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sakif/forgenotes/internal/auth"
	"github.com/sakif/forgenotes/internal/config"
)

func main() {
	sub := flag.String("sub", "admin", "token subject")
	ttl := flag.Duration("ttl", auth.DefaultTTL, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if !cfg.WriteProtected() {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set; the server does not require tokens")
		os.Exit(1)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	token, err := tokens.Issue(*sub, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
