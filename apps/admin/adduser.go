package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/skmethodistpj/laporan/core/user"
)

// addUser updates or creates a staff account. An existing account is re-activated.
func (cli *commandLine) addUser(name, uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	roles := []string{user.RoleTeacher}
	if isAdmin {
		roles = []string{user.RoleAdmin}
	}

	lookup := uname
	if lookup == "" {
		lookup = email
	}
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, lookup)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr, err = cli.usrSvc.Create(ctx, user.NewUser{
			Name:            name,
			Username:        uname,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
			Roles:           roles,
		})
		if err != nil {
			return err
		}
		cli.logf("created %s (%s)", usr.DisplayName(), usr.ID)
		return nil
	}

	active := true
	usr, err = cli.usrSvc.Update(ctx, usr.ID, user.UpdateUser{
		Name:            name,
		Username:        uname,
		Email:           email,
		IsActive:        &active,
		Roles:           roles,
		Password:        pwd,
		PasswordConfirm: pwd,
	})
	if err != nil {
		return err
	}
	cli.logf("updated %s (%s)", usr.DisplayName(), usr.ID)
	return nil
}
