package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/vairaa/kazi/core"
	"github.com/vairaa/kazi/core/user"
)

// addUser provisions an admin account with the chosen password. An existing
// user with the same email is promoted to admin and gets their password reset.
func (cli *commandLine) addUser(name, email, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	if usr, err := cli.usrSvc.GetByEmail(ctx, email); err == nil {
		if usr.Role != user.RoleAdmin {
			if _, err = cli.usrSvc.SetRole(ctx, usr.ID, user.RoleAdmin); err != nil {
				return err
			}
		}
		_, err = cli.usrSvc.ResetPassword(ctx, email, pwd)
		return err
	} else if errors.Cause(err) != user.ErrNotFound {
		return err
	}

	results := cli.usrSvc.Provision(ctx, []user.NewUser{
		{FullName: core.CleanString(name), Email: email, Role: user.RoleAdmin},
	}, false /* sendMail */)
	res := results[0]
	if !res.OK {
		return errors.New(res.Error)
	}
	if _, err := cli.usrSvc.ResetPassword(ctx, email, pwd); err != nil {
		return err
	}
	fmt.Printf("admin %s created (%s)\n", email, res.StudentID)
	return nil
}
