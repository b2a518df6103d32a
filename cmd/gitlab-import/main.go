package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/nhle/gitlab-import/internal/credential"
	"github.com/nhle/gitlab-import/internal/importer"
	"github.com/nhle/gitlab-import/internal/logging"
	"github.com/nhle/gitlab-import/internal/model"
	"github.com/nhle/gitlab-import/internal/source/gitlab"
	"github.com/nhle/gitlab-import/internal/store"
	gosync "github.com/nhle/gitlab-import/internal/sync"
	"github.com/nhle/gitlab-import/internal/ui/progress"
	"github.com/nhle/gitlab-import/internal/ui/prompt"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "gitlab-import:", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("gitlab-import", pflag.ContinueOnError)
	configPath := flags.String("config", model.DefaultConfigPath(), "path to config file")
	project := flags.String("project", "", "full path of the project to import (skips the picker)")
	flags.Bool("no-cache", false, "ignore the cached token and prompt for a new one")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("db", "", "path to the record database")
	list := flags.Bool("list", false, "print imported records and exit")
	search := flags.String("search", "", "with --list, only records whose name or description contains this text")
	limit := flags.Int("limit", 20, "with --list, the maximum number of records to print")
	show := flags.String("show", "", "print the imported record with this GitLab global ID and exit")
	saveConfig := flags.Bool("save-config", false, "write the effective configuration to --config and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := model.LoadConfig(*configPath, flags)
	if err != nil {
		return err
	}

	if *saveConfig {
		if err := model.SaveConfig(*configPath, cfg); err != nil {
			return err
		}
		fmt.Println("wrote", *configPath)
		return nil
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Developer)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	switch {
	case *show != "":
		out, err := showRecord(ctx, s, *show)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	case *list:
		out, err := listRecords(ctx, s, *search, *limit)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}

	conn, client, err := buildConnector(cfg, logger)
	if err != nil {
		return err
	}

	// Authenticate up front so the token prompt never competes with the
	// project picker for the terminal.
	if _, err := client.Authenticate(ctx); err != nil {
		return err
	}
	if _, err := conn.ListFilters(ctx); err != nil {
		return err
	}

	fullPath := *project
	if fullPath == "" {
		fullPath, err = prompt.Project(ctx, conn)
		if err != nil {
			return err
		}
	}

	res, err := importProject(ctx, conn, s, fullPath, logger)

	// The count is reported even after a failed run; ctx may be cancelled.
	stored, cerr := s.CountRecords(context.WithoutCancel(ctx))
	if cerr != nil {
		logger.WithError(cerr).Warn("counting stored records")
	}
	fmt.Println(progress.Summary(fullPath, res, stored, err))
	return err
}

// buildConnector wires the token cache, authenticator and GraphQL client.
func buildConnector(
	cfg *model.AppConfig,
	logger *logrus.Logger,
) (*importer.Connector, *gitlab.Client, error) {
	cache, err := credential.Open(model.ConfigDir())
	if err != nil {
		return nil, nil, err
	}

	var prompter gitlab.Prompter = gitlab.PrompterFunc(prompt.Token)
	if cfg.GitLab.Token != "" {
		token := cfg.GitLab.Token
		prompter = gitlab.PrompterFunc(func(context.Context) (string, error) {
			return token, nil
		})
	}

	auth := gitlab.NewAuthenticator(
		cache,
		prompter,
		gitlab.NewRESTValidator(gitlab.DefaultRESTURL, nil),
		gitlab.AuthOptions{UseCachedCredential: cfg.GitLab.UseCachedCredential},
		logger,
	)
	client := gitlab.NewClient(auth, logger)

	return importer.New(client, logger), client, nil
}

// importProject runs the import session under the progress view.
func importProject(
	ctx context.Context,
	conn *importer.Connector,
	s store.Store,
	fullPath string,
	logger *logrus.Logger,
) (*gosync.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(progress.New(fullPath, cancel))

	runner := gosync.NewRunner(conn, s, logger)
	runner.OnProgress = func(pr gosync.Progress) {
		p.Send(progress.UpdateMsg(pr))
	}

	go func() {
		res, err := runner.Run(ctx, model.FilterValues{importer.FilterProject: fullPath})
		p.Send(progress.DoneMsg{Result: res, Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("running progress view: %w", err)
	}

	return final.(progress.Model).Result()
}
