package main

import (
	"context"
	"fmt"

	"github.com/trezcool/khidmat/core/user"
)

// resetPassword sets the password of an active user, found by username or email.
func (cli *commandLine) resetPassword(login, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: login})
	if err != nil {
		return err
	}
	if !usr.Active() {
		return errDeactivated
	}
	if err = cli.checkPassword(usr, pwd); err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err = cli.usrRepo.UpdateUser(ctx, usr); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "password of %q reset\n", usr.Username)
	return nil
}
