package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"task-manager/internal/client"
)

const (
	defaultServer = "http://localhost:8080"

	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// app はコマンド間で共有する設定と接続です。
type app struct {
	v          *viper.Viper
	configFile string

	client *client.Client
	loc    *time.Location
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "taskctl",
		Short: "Command line client for the task manager API",
		Long: `taskctl manages tasks and tags through the task manager REST API.

The server URL and token are read from flags, TASKCTL_* environment
variables or the config file written by "taskctl login".`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default: <user config dir>/taskctl/config.yaml)")
	pf.String("server", defaultServer, "API server URL")
	pf.String("token", "", "JWT (default: the one saved by login)")
	pf.StringP("output", "o", outputTable, "output format: table, json or yaml")
	pf.String("timezone", "Local", "timezone for displaying and entering times")
	for _, key := range []string{"server", "token", "output", "timezone"} {
		_ = a.v.BindPFlag(key, pf.Lookup(key))
	}
	a.v.SetEnvPrefix("TASKCTL")
	a.v.AutomaticEnv()

	root.AddCommand(
		newLoginCmd(a),
		newTaskCmd(a),
		newTagCmd(a),
		newReportCmd(a),
	)
	return root
}

// init は設定ファイルを読み込み、クライアントを作成します。設定ファイルが無くてもエラーにしません。
func (a *app) init() error {
	if a.configFile == "" {
		path, err := defaultConfigPath()
		if err != nil {
			return err
		}
		a.configFile = path
	}

	if _, err := os.Stat(a.configFile); err == nil {
		a.v.SetConfigFile(a.configFile)
		a.v.SetConfigType("yaml")
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	switch a.output() {
	case outputTable, outputJSON, outputYAML:
	default:
		return fmt.Errorf("unknown output format %q", a.output())
	}

	loc, err := time.LoadLocation(a.v.GetString("timezone"))
	if err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}
	a.loc = loc
	a.client = client.New(a.v.GetString("server"), client.WithToken(a.v.GetString("token")))
	return nil
}

func (a *app) output() string {
	return a.v.GetString("output")
}

func defaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "taskctl", "config.yaml"), nil
}
