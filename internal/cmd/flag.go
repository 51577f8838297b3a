package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type commandLineFlag struct {
	name, shorthand, defaultValue, usage string
	required                             bool
	isBool                               bool
	// bindViper binds the flag to the global viper key of the same name.
	bindViper bool
}

var (
	configFlag = commandLineFlag{
		name:      "config",
		shorthand: "c",
		usage:     "config file (default is ./config.yaml or $HOME/.config/retrainer/config.yaml)",
		bindViper: true,
	}
	envFileFlag = commandLineFlag{
		name:      "env-file",
		usage:     "dotenv file loaded before the environment is read (default is ./.env)",
		bindViper: true,
	}
	quietFlag = commandLineFlag{
		name:      "quiet",
		shorthand: "q",
		usage:     "suppress log output",
		isBool:    true,
	}
	hostFlag = commandLineFlag{
		name:      "host",
		shorthand: "s",
		usage:     "status API host (overrides the configuration)",
	}
	portFlag = commandLineFlag{
		name:      "port",
		shorthand: "p",
		usage:     "status API port (overrides the configuration)",
	}
	urlFlag = commandLineFlag{
		name:      "url",
		shorthand: "u",
		usage:     "base URL of a running retrainer (default is derived from host and port)",
	}
	jsonFlag = commandLineFlag{
		name:   "json",
		usage:  "print the raw JSON response",
		isBool: true,
	}
	localFlag = commandLineFlag{
		name:   "local",
		usage:  "read the model registry from disk instead of the API",
		isBool: true,
	}
	replaceFlag = commandLineFlag{
		name:   "replace",
		usage:  "delete labels that are not present in the imported file",
		isBool: true,
	}
)

var baseFlags = []commandLineFlag{configFlag, envFileFlag, quietFlag}

func withBaseFlags(flags []commandLineFlag) []commandLineFlag {
	all := make([]commandLineFlag, 0, len(baseFlags)+len(flags))
	all = append(all, baseFlags...)
	return append(all, flags...)
}

func initFlags(cmd *cobra.Command, flags ...commandLineFlag) {
	for _, flag := range withBaseFlags(flags) {
		if flag.isBool {
			cmd.Flags().BoolP(flag.name, flag.shorthand, flag.defaultValue == "true", flag.usage)
		} else {
			cmd.Flags().StringP(flag.name, flag.shorthand, flag.defaultValue, flag.usage)
		}
		if flag.required {
			if err := cmd.MarkFlagRequired(flag.name); err != nil {
				fmt.Printf("failed to mark flag %s as required: %v\n", flag.name, err)
			}
		}
	}
}

func bindFlags(cmd *cobra.Command, flags ...commandLineFlag) error {
	for _, flag := range withBaseFlags(flags) {
		if !flag.bindViper {
			continue
		}
		if err := viper.BindPFlag(flag.name, cmd.Flags().Lookup(flag.name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag.name, err)
		}
	}
	return nil
}
