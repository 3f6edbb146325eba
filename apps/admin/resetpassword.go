package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/trezcool/engsoc/core/member"
)

func (cli *commandLine) resetPassword(login, pwd string) error {
	ctx := context.Background()

	m, err := cli.members.GetByLogin(ctx, login)
	if err != nil {
		return err
	}
	if msg := member.CheckPassword(pwd, m.MemberID, m.Name, m.Email); msg != "" {
		return errors.New(msg)
	}

	if _, err = cli.members.SetPassword(ctx, m, pwd); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "password of %s updated\n", m.MemberID)
	return nil
}
