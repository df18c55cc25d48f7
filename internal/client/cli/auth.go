package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/clarifio/clarifio/internal/client/api"
	"github.com/clarifio/clarifio/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) isAuthenticated() bool {
	id := a.identity.Current()
	return id != nil && !id.IsAnonymous()
}

// SignIn prompts for credentials and switches to that identity. Records
// created under the previous anonymous identity stay on the server but
// are no longer reachable from this account.
func (a *App) SignIn(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	id, err := a.identity.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, api.ErrUnavailable) {
			log.Printf("Server unavailable, try again later")
		} else {
			log.Printf("Sign-in unsuccessful: %s", err.Error())
		}
		return err
	}

	a.program, a.course = nil, nil
	fmt.Printf("Signed in as %s\n", id.Email)
	return nil
}

// SignUp registers a new credential. The account stays pending until the
// user confirms their email; the current identity is untouched.
func (a *App) SignUp(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.identity.SignUp(ctx, email, password); err != nil {
		log.Printf("Sign-up unsuccessful: %s", err.Error())
		return err
	}

	fmt.Println("Check your inbox to confirm the address, then use 'signin'.")
	return nil
}

// Link attaches an email+password credential to the current anonymous
// identity, keeping its id and therefore all its data.
func (a *App) Link(ctx context.Context) error {
	id := a.identity.Current()
	if id == nil {
		fmt.Println("No active identity; use 'signin' or 'signup'.")
		return nil
	}
	if !id.IsAnonymous() {
		fmt.Println("Already signed in; 'link' is for guest identities.")
		return nil
	}

	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	linked, err := a.identity.LinkCredential(ctx, email, password)
	if err != nil {
		log.Printf("Linking unsuccessful: %s", err.Error())
		return err
	}

	fmt.Printf("Account %s now owns your existing data\n", linked.Email)
	return nil
}

// SignOut revokes the session and continues as a fresh guest.
func (a *App) SignOut(ctx context.Context) error {
	if _, err := a.identity.SignOut(ctx); err != nil {
		log.Printf("Sign-out unsuccessful: %s", err.Error())
		return err
	}
	a.program, a.course = nil, nil
	fmt.Println("Signed out; continuing as guest.")
	return nil
}
