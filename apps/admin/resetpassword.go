package main

import (
	"context"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	usr, err := cli.usrSvc.ResetPassword(context.Background(), uname, pwd, pwd)
	if err != nil {
		return err
	}
	cli.logf("password reset for %s", usr.DisplayName())
	return nil
}
