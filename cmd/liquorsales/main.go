// Command liquorsales analyzes Iowa liquor sales transactions.
//
// Subcommands:
//
//	schema      sample the transactions file and print its columns
//	categories  list the distinct category codes found in the file
//	analyze     aggregate the file and write charts, report and results
//	population  load (and cache) the population table and print its top keys
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"liquorsales/internal/config"

	// register all results-store backends with the storage factory.
	_ "liquorsales/internal/storage/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries state shared by the subcommands.
type app struct {
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger *log.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "liquorsales",
		Short: "Analyze Iowa liquor sales transactions",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			cfg, err := config.Load(a.cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
			if a.verbose && a.cfgFile != "" {
				a.logger.Printf("config: file=%s", a.cfgFile)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "YAML config file")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logs")
	config.BindFlags(pf)

	root.AddCommand(
		a.newSchemaCmd(),
		a.newCategoriesCmd(),
		a.newAnalyzeCmd(),
		a.newPopulationCmd(),
	)
	return root
}
