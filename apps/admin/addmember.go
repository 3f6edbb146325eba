package main

import (
	"context"
	"fmt"

	"github.com/trezcool/engsoc/core/member"
)

func (cli *commandLine) addMember(nm member.NewMember, admin bool) error {
	if admin {
		nm.Roles = member.AllRoles
	}
	if err := nm.Validate(cli.validate, cli.members); err != nil {
		return cli.translate(err)
	}

	m, err := cli.members.Create(context.Background(), nm)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "member %s created (%s)\n", m.MemberID, m.ID)
	return nil
}
