package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sociusfit/internal/client/config"
	"github.com/spf13/cobra"
)

// Execute runs the sociusfit command line with args and releases the App
// whatever the outcome.
func Execute(ctx context.Context, s Streams, args []string) error {
	root, holder := newRootCmd(s)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if holder.app != nil {
		err = errors.Join(err, holder.app.Close())
	}
	return err
}

// appHolder carries the App built by the pre-run hook to the commands.
type appHolder struct {
	app *App
}

func (h *appHolder) get() *App { return h.app }

func newRootCmd(s Streams) (*cobra.Command, *appHolder) {
	var (
		configPath string
		flags      config.Flags
		holder     = &appHolder{}
	)

	root := &cobra.Command{
		Use:           "sociusfit",
		Short:         "SociusFit command-line client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, flags, nil)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			holder.app, err = NewApp(cmd.Context(), cfg, s)
			return err
		},
	}
	root.SetIn(s.In)
	root.SetOut(s.Out)
	root.SetErr(s.Err)

	pf := root.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "path to a JSON config file")
	pf.StringVar(&flags.APIBaseURL, "api", "", "backend base URL")
	pf.StringVar(&flags.DatabasePath, "db", "", "session database path")
	pf.StringVar(&flags.LogLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&flags.LogFormat, "log-format", "", "console, text or json")

	root.AddCommand(
		loginCmd(holder.get),
		registerCmd(holder.get),
		logoutCmd(holder.get),
		statusCmd(holder.get),
		meCmd(holder.get),
	)
	return root, holder
}
