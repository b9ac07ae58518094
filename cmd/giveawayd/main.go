package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ark-network/giveaway/internal/config"
	httpservice "github.com/ark-network/giveaway/internal/interface/http"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

//nolint:all
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// flags
var (
	urlFlag = &cli.StringFlag{
		Name:  "url",
		Usage: "the url where to reach giveawayd",
		Value: fmt.Sprintf("http://localhost:%d", config.DefaultPort),
	}
	jwtSecretFlag = &cli.StringFlag{
		Name:    "jwt-secret",
		Usage:   "the secret used to sign bearer tokens",
		EnvVars: []string{"GIVEAWAY_JWT_SECRET"},
	}
	callerFlag = &cli.StringFlag{
		Name:    "caller",
		Usage:   "the address to authenticate as, defaults to the admin",
		EnvVars: []string{"GIVEAWAY_ADMIN_ADDRESS"},
	}
	tlsCertFlag = &cli.StringFlag{
		Name:  "tls-cert-path",
		Usage: "the path of the TLS certificate file to use",
	}
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s (%s, %s)", version, commit, date)
	app.Name = "giveawayd"
	app.Usage = "run or manage the giveaway daemon"
	app.Flags = append(app.Flags, urlFlag, jwtSecretFlag, callerFlag, tlsCertFlag)
	app.Commands = append(
		app.Commands,
		infoCmd,
		roundCmd,
		tokenCmd,
	)
	app.Action = mainAction

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func mainAction(_ *cli.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid config: %s", err)
	}

	log.SetLevel(log.Level(cfg.LogLevel))

	svcConfig := httpservice.Config{
		Datadir:   cfg.Datadir,
		Port:      cfg.Port,
		NoTLS:     cfg.NoTLS,
		DevLedger: cfg.LedgerType == "inmemory",
	}

	svc, err := httpservice.NewService(svcConfig, cfg)
	if err != nil {
		return err
	}

	log.RegisterExitHandler(svc.Stop)

	log.Info("starting service...")
	if err := svc.Start(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, os.Interrupt)
	<-sigChan

	log.Info("shutting down service...")
	log.Exit(0)

	return nil
}
