package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/question"
	"github.com/homeworkhelper/api/core/user"
	aisvc "github.com/homeworkhelper/api/services/ai"
	identitysvc "github.com/homeworkhelper/api/services/identity"
	logsvc "github.com/homeworkhelper/api/services/logger"
	"github.com/homeworkhelper/api/storage/database"
)

func main() {
	conf := core.NewConfig()
	stdLogger := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	question.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up storage
	ctx := context.Background()
	store := database.OpenStore(ctx, conf, logger)
	defer func() { _ = store.Close(ctx) }()

	// start CLI
	cli := commandLine{
		conf:        conf,
		store:       store,
		questionSvc: question.NewService(store.Questions, aisvc.NewOpenAI(conf, logger), validate, logger, core.NopMetrics{}, conf),
		userSvc:     user.NewService(store.Users, validate),
		local:       identitysvc.NewLocal(conf),
		out:         os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			stdLogger.Printf("\nerror: %s\n", err)
		}
		_ = store.Close(ctx)
		os.Exit(1)
	}
}
