package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/user"
)

func (cli *commandLine) setRole(email, role, uid string) error {
	usr, err := cli.userSvc.SetRole(context.Background(), user.SetRole{Email: email, Role: role, UID: uid})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s is now %s\n", usr.Email, usr.Role)
	return nil
}

// token prints a token that the local identity provider accepts for the user.
func (cli *commandLine) token(email string) error {
	if cli.conf.Auth.Provider != core.AuthLocal {
		return errors.Errorf("tokens are only issued with auth provider %q (got %q)", core.AuthLocal, cli.conf.Auth.Provider)
	}
	usr, err := cli.userSvc.GetByEmail(context.Background(), email)
	if err != nil {
		return errors.Wrapf(err, "finding %s", email)
	}
	token, err := cli.local.IssueToken(usr)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
