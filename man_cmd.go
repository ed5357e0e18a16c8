package main

import (
	"fmt"

	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/spf13/cobra"
)

var manCmd = &cobra.Command{
	Use:                   "man",
	Short:                 "Generates manpages",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Hidden:                true,
	Args:                  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		manPage, err := mcobra.NewManPage(1, rootCmd)
		if err != nil {
			return err //nolint:wrapcheck
		}

		manPage = manPage.WithSection("Configuration", "recite reads recite.yml from $RECITE_CONFIG_HOME, "+
			"$XDG_CONFIG_HOME/recite or the user config directory. "+
			"Any key can be overridden with a RECITE_ variable, for example RECITE_PLAYBACK_MODE.")
		fmt.Println(manPage.Build(roff.NewDocument()))
		return nil
	},
}
