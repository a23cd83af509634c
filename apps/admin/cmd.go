package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/question"
	"github.com/homeworkhelper/api/core/user"
	identitysvc "github.com/homeworkhelper/api/services/identity"
	"github.com/homeworkhelper/api/storage/database"
)

var (
	isTerminalFunc = term.IsTerminal          // mockable
	createDBFunc   = database.CreateIfNotExist // mockable
	stdin          = io.Reader(os.Stdin)       // mockable

	errHelp    = errors.New("help provided")
	errAborted = errors.New("aborted")
)

type commandLine struct {
	conf        *core.Config
	store       *database.Store
	questionSvc *question.Service
	userSvc     *user.Service
	local       *identitysvc.Local
	out         io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, version, redo, reset...)")
	fmt.Fprintln(cli.out, "  createdb - create the postgres database and app user when missing")
	fmt.Fprintln(cli.out, "  seed [-purge] - insert the sample questions and students")
	fmt.Fprintln(cli.out, "  setrole -email EMAIL -role student|admin [-uid UID] - set a user's role")
	fmt.Fprintln(cli.out, "  token -email EMAIL - print a local auth token for a user")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	seedCmd := flag.NewFlagSet("seed", flag.ContinueOnError)
	seedPurge := seedCmd.Bool("purge", false, "Delete the existing seed questions first.")

	setRoleCmd := flag.NewFlagSet("setrole", flag.ContinueOnError)
	setRoleEmail := setRoleCmd.String("email", "", "The user's email.")
	setRoleRole := setRoleCmd.String("role", "", "The role to grant: student or admin.")
	setRoleUID := setRoleCmd.String("uid", "", "The identity provider's user id, if known.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenEmail := tokenCmd.String("email", "", "The user's email.")

	for _, fs := range []*flag.FlagSet{seedCmd, setRoleCmd, tokenCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "createdb":
		return createDBFunc(context.Background(), cli.conf)
	case "seed":
		if err := seedCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.seed(*seedPurge)
	case "setrole":
		if err := setRoleCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *setRoleEmail == "" || *setRoleRole == "" {
			setRoleCmd.Usage()
			return errHelp
		}
		return cli.setRole(*setRoleEmail, *setRoleRole, *setRoleUID)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenEmail == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(*tokenEmail)
	default:
		cli.printUsage()
		return errHelp
	}
}

// confirm asks a yes/no question when stdin is a terminal; anything else is a yes.
func (cli *commandLine) confirm(prompt string) bool {
	if !isTerminalFunc(int(os.Stdin.Fd())) {
		return true
	}
	fmt.Fprintf(cli.out, "%s [y/N]: ", prompt)
	answer, _ := bufio.NewReader(stdin).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
