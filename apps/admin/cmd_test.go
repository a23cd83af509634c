package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/question"
	"github.com/homeworkhelper/api/core/tutor"
	"github.com/homeworkhelper/api/core/user"
	identitysvc "github.com/homeworkhelper/api/services/identity"
	"github.com/homeworkhelper/api/storage/database"
	inmemdb "github.com/homeworkhelper/api/storage/database/inmem"
	testutil "github.com/homeworkhelper/api/tests"
)

type noGenerator struct{}

func (noGenerator) Configured() bool { return false }

func (noGenerator) Answer(context.Context, tutor.Prompt) (string, error) {
	return "", tutor.ErrNotConfigured
}

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()

	db, err := inmemdb.Open()
	require.NoError(t, err)
	store := database.NewMemoryStore(db)

	conf := core.NewTestConfig()
	conf.Auth.Provider = core.AuthLocal
	validate, _ := testutil.NewValidator()
	logger := testutil.NewLogger()

	var out bytes.Buffer
	return &commandLine{
		conf:        conf,
		store:       store,
		questionSvc: question.NewService(store.Questions, noGenerator{}, validate, logger, core.NopMetrics{}, conf),
		userSvc:     user.NewService(store.Users, validate),
		local:       identitysvc.NewLocal(conf),
		out:         &out,
	}, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, errors.Cause(err))
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Equal(t, tt.wantErrStr, err.Error())
				}
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, out := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	})
	assert.Contains(t, out.String(), "Usage:")
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	t.Run("memory engine", func(t *testing.T) {
		err := cli.run([]string{"admin", "migrate", "up"})
		assert.EqualError(t, err, `migrations need the postgres engine (got "memory")`)
	})

	cli.store.SQL = new(sql.DB)
	cli.store.Engine = core.EnginePostgres
	var gotCommand string
	gooseRunFunc = func(_ context.Context, command string, db *sql.DB, args ...string) error {
		gotCommand = command
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "add_feedback", "sql"}},
	})
	assert.Equal(t, "create", gotCommand)
}

func Test_commandLine_createdb(t *testing.T) {
	cli, _ := setup(t)
	var called bool
	createDBFunc = func(_ context.Context, conf *core.Config) error {
		called = true
		return nil
	}

	runCLITests(t, cli, []cliTest{{name: "createdb", args: []string{"createdb"}}})
	assert.True(t, called)
}

func Test_commandLine_seed(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()
	isTerminalFunc = func(int) bool { return false }

	own := testutil.CreateQuestion(t, cli.store.Questions, "What is a verb?", question.English, testutil.AskedBy("u1"))
	stale := testutil.CreateQuestion(t, cli.store.Questions, "Old sample", question.Other)

	runCLITests(t, cli, []cliTest{
		{name: "seed", args: []string{"seed"}},
		{name: "seed again", args: []string{"seed"}},
	})
	assert.Contains(t, out.String(), "created 8 students and 12 seed questions")
	assert.Contains(t, out.String(), "created 8 students and 0 seed questions")

	all, err := cli.store.Questions.Query(ctx, question.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 14)

	usr, err := cli.userSvc.GetByEmail(ctx, "student8@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.RoleStudent, usr.Role)

	t.Run("purge", func(t *testing.T) {
		runCLITests(t, cli, []cliTest{{name: "purge", args: []string{"seed", "-purge"}}})

		all, err := cli.store.Questions.Query(ctx, question.QueryFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 13)

		_, err = cli.store.Questions.Get(ctx, own.ID)
		assert.NoError(t, err, "asked questions survive a purge")
		_, err = cli.store.Questions.Get(ctx, stale.ID)
		assert.Equal(t, question.ErrNotFound, errors.Cause(err))
	})

	t.Run("purge declined", func(t *testing.T) {
		isTerminalFunc = func(int) bool { return true }
		stdin = strings.NewReader("n\n")
		defer func() { isTerminalFunc = func(int) bool { return false } }()

		runCLITests(t, cli, []cliTest{{name: "declined", args: []string{"seed", "-purge"}, wantErr: errAborted}})
	})

	t.Run("purge confirmed", func(t *testing.T) {
		isTerminalFunc = func(int) bool { return true }
		stdin = strings.NewReader("yes\n")
		defer func() { isTerminalFunc = func(int) bool { return false } }()

		runCLITests(t, cli, []cliTest{{name: "confirmed", args: []string{"seed", "-purge"}}})
	})
}

func Test_commandLine_setRole(t *testing.T) {
	cli, _ := setup(t)
	ctx := context.Background()

	runCLITests(t, cli, []cliTest{
		{name: "no args", args: []string{"setrole"}, wantErr: errHelp},
		{name: "no role", args: []string{"setrole", "-email", "a@example.com"}, wantErr: errHelp},
	})

	t.Run("invalid role", func(t *testing.T) {
		err := cli.run([]string{"admin", "setrole", "-email", "a@example.com", "-role", "owner"})
		assert.Error(t, err)
	})

	t.Run("admin", func(t *testing.T) {
		require.NoError(t, cli.run([]string{"admin", "setrole", "-email", "A@example.com", "-role", "admin", "-uid", "uid-a"}))

		usr, err := cli.userSvc.GetByUID(ctx, "uid-a")
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", usr.Email)
		assert.True(t, usr.IsAdmin())
	})
}

func Test_commandLine_token(t *testing.T) {
	cli, out := setup(t)
	testutil.CreateUser(t, cli.store.Users, "uid-a", "admin@example.com", user.RoleAdmin)
	testutil.CreateUser(t, cli.store.Users, "", "seed@example.com", user.RoleStudent)

	runCLITests(t, cli, []cliTest{
		{name: "no args", args: []string{"token"}, wantErr: errHelp},
		{name: "unknown user", args: []string{"token", "-email", "nobody@example.com"}, wantErr: user.ErrNotFound},
	})

	t.Run("user without uid", func(t *testing.T) {
		assert.Error(t, cli.run([]string{"admin", "token", "-email", "seed@example.com"}))
	})

	t.Run("admin", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "token", "-email", "admin@example.com"}))

		id, err := cli.local.Verify(context.Background(), strings.TrimSpace(out.String()))
		require.NoError(t, err)
		assert.Equal(t, "uid-a", id.UID)
		assert.True(t, id.Admin)
	})

	t.Run("other provider", func(t *testing.T) {
		cli.conf.Auth.Provider = core.AuthFirebase
		defer func() { cli.conf.Auth.Provider = core.AuthLocal }()
		assert.Error(t, cli.run([]string{"admin", "token", "-email", "admin@example.com"}))
	})
}
