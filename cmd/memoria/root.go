package main

import (
	"errors"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/memoria-app/memoria/internal/apperr"
	"github.com/memoria-app/memoria/internal/client"
	"github.com/memoria-app/memoria/internal/config"
	"github.com/memoria-app/memoria/internal/logging"
	"github.com/memoria-app/memoria/internal/service/account"
	"github.com/memoria-app/memoria/internal/service/credential"
	"github.com/memoria-app/memoria/internal/service/gate"
)

var errNotLoggedIn = errors.New("not logged in, run `memoria login` first")

// app holds what every subcommand shares. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	envFile string

	cfg     *config.Config
	logger  *zap.Logger
	creds   *credential.FileStore
	gate    *gate.Gate
	api     *client.Client
	account *account.Service
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "memoria",
		Short:         "Talk with the people you remember",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newStatusCmd(a),
		newAvatarsCmd(a),
		newAvatarCmd(a),
		newChatCmd(a),
	)
	return root
}

// setup loads configuration and wires the client stack.
func (a *app) setup() error {
	if err := godotenv.Load(a.envFile); err != nil && a.envFile != ".env" {
		log.Printf("warning: failed to load %s: %v", a.envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}

	creds, err := credential.NewFileStore(cfg.Client.CredentialsFile, logger)
	if err != nil {
		return err
	}

	g := gate.New(logger)
	g.Resolve(creds)

	api := client.New(cfg.Client.BaseURL, creds,
		client.WithTimeout(cfg.Client.Timeout),
		client.WithLogger(logger),
	)
	acct := account.NewService(api, creds, g, logger)
	api.SetUnauthorizedHandler(acct.HandleUnauthorized)

	a.cfg = cfg
	a.logger = logger
	a.creds = creds
	a.gate = g
	a.api = api
	a.account = acct
	return nil
}

// route asks the gate whether path may render. A redirect to the login
// screen means the user is signed out.
func (a *app) route(path string) (gate.Decision, error) {
	decision := a.gate.Navigate(path)
	if decision.Redirect == gate.PathLogin {
		return decision, errNotLoggedIn
	}
	return decision, nil
}

// userError keeps err in the chain but shows the display message.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

func displayError(err error, fallback string) error {
	if err == nil {
		return nil
	}
	if apperr.IsAuth(err) {
		return &userError{msg: "your session has expired, please log in again", err: err}
	}
	return &userError{msg: apperr.UserMessage(err, fallback), err: err}
}
