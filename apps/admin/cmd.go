package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/skmethodistpj/laporan/core"
	"github.com/skmethodistpj/laporan/core/appstate"
	"github.com/skmethodistpj/laporan/core/calendar"
	"github.com/skmethodistpj/laporan/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp         = errors.New("help provided")
	errNoDatabase   = errors.New("database is disabled")
	errNoRecipients = errors.New("no reminder recipients configured")
)

type commandLine struct {
	conf    *core.Config
	db      *sql.DB // nil when the database is disabled
	usrSvc  *user.Service
	store   appstate.Store
	cal     *calendar.Calendar
	mailSvc core.EmailService
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME -email EMAIL -name NAME [-admin] - create or update a staff account")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  week [-date YYYY-MM-DD] - print the academic week and its assembly theme")
	fmt.Fprintln(cli.out, "  remind [-date YYYY-MM-DD] - email the past due assembly weeks to the coordinators")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserName := addUserCmd.String("name", "", "The user's full name, as printed on reports.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Give the user the admin role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	weekCmd := flag.NewFlagSet("week", flag.ContinueOnError)
	weekDate := weekCmd.String("date", "", "The date, defaults to today.")

	remindCmd := flag.NewFlagSet("remind", flag.ContinueOnError)
	remindDate := remindCmd.String("date", "", "The date the digest is computed for, defaults to today.")

	for _, fs := range []*flag.FlagSet{addUserCmd, resetPasswordCmd, weekCmd, remindCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserUname == "" && *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			if err == errHelp {
				addUserCmd.Usage()
			}
			return err
		}
		return cli.addUser(*addUserName, *addUserUname, *addUserEmail, pwd, *addUserAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			if err == errHelp {
				resetPasswordCmd.Usage()
			}
			return err
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "week":
		if err := weekCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.week(*weekDate)

	case "remind":
		if err := remindCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.remind(*remindDate)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errHelp
	}
	return string(pwd), nil
}

// date parses the -date flag of a subcommand. Empty means today.
func (cli *commandLine) date(s string) (time.Time, error) {
	if s == "" {
		return calendar.NowFunc().In(calendar.Location), nil
	}
	t, err := calendar.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be in the format YYYY-MM-DD (got '%s')", s)
	}
	return t, nil
}

func (cli *commandLine) logf(format string, args ...interface{}) {
	fmt.Fprintf(cli.out, format+"\n", args...)
}
