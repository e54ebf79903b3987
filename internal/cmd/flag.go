package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type commandLineFlag struct {
	name, shorthand, defaultValue, usage string
	isBool                               bool
}

var (
	configFlag = commandLineFlag{
		name:      "config",
		shorthand: "c",
		usage:     "config file (default is $XDG_CONFIG_HOME/watcher/config.yaml)",
	}
	quietFlag = commandLineFlag{
		name:      "quiet",
		shorthand: "q",
		usage:     "suppress log output",
		isBool:    true,
	}
	formatFlag = commandLineFlag{
		name:         "format",
		shorthand:    "f",
		defaultValue: "yaml",
		usage:        "output format, yaml or json",
	}
	countFlag = commandLineFlag{
		name:         "count",
		shorthand:    "n",
		defaultValue: "5",
		usage:        "number of upcoming fire times to list",
	}
	fromFlag = commandLineFlag{
		name:  "from",
		usage: "RFC 3339 time to list fire times after (default is now)",
	}
	timeoutFlag = commandLineFlag{
		name:      "timeout",
		shorthand: "t",
		usage:     "bound the whole execution, for example 30s",
	}
	statusFlag = commandLineFlag{
		name:   "status",
		usage:  "print the updated watch status after running",
		isBool: true,
	}
	noStatusFlag = commandLineFlag{
		name:   "no-status",
		usage:  "ignore the status stored in the watch document",
		isBool: true,
	}
)

func initFlags(cmd *cobra.Command, addFlags ...commandLineFlag) {
	addFlags = append([]commandLineFlag{configFlag, quietFlag}, addFlags...)
	for _, flag := range addFlags {
		if flag.isBool {
			cmd.Flags().BoolP(flag.name, flag.shorthand, false, flag.usage)
			continue
		}
		cmd.Flags().StringP(flag.name, flag.shorthand, flag.defaultValue, flag.usage)
	}
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	if err := v.BindPFlag("config", cmd.Flags().Lookup("config")); err != nil {
		return fmt.Errorf("failed to bind flag config: %w", err)
	}
	return nil
}
