package main

import (
	"context"
	"fmt"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/user"
)

// addUser updates or creates an active dashboard user.User
func (cli *commandLine) addUser(name, uname, email, pwd string, isOwner bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)

	lookup := uname
	if lookup == "" {
		lookup = email
	}
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: lookup})
	if err != nil {
		if !core.IsNotFound(err) {
			return err
		}
		usr = user.User{Username: uname, Email: email}
	}
	if name != "" {
		usr.Name = name
	} else if usr.Name == "" {
		usr.Name = uname
	}
	if email != "" {
		usr.Email = email
	}

	usr.Roles = []string{user.RoleAdmin}
	if isOwner {
		usr.Roles = user.AllRoles
	}
	usr.SetActive(true)
	if err := cli.checkPassword(usr, pwd); err != nil {
		return err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	usr, err = cli.usrRepo.UpdateOrCreateUser(ctx, usr)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %q saved (id: %s)\n", usr.Username, usr.ID)
	return nil
}
