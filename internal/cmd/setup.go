package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meera/datashelf/internal/config"
	"github.com/meera/datashelf/internal/logger"
)

// setup loads the tool configuration and builds the console logger from
// the persistent flags. The --log-level flag overrides the config file.
func setup(cmd *cobra.Command) (*config.Config, *logger.Console, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, nil, err
	}

	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = cfg.LogLevel
	}

	return cfg, logger.NewConsole(cmd.ErrOrStderr(), level), nil
}

// parseTagFilters turns repeated "name=v1,v2" flag values into the
// filter map the index store queries with.
func parseTagFilters(pairs []string) (map[string][]string, error) {
	filters := make(map[string][]string, len(pairs))
	for _, p := range pairs {
		name, values, ok := strings.Cut(p, "=")
		if !ok || name == "" || values == "" {
			return nil, fmt.Errorf("bad tag filter %q, want name=value[,value...]", p)
		}
		filters[name] = append(filters[name], strings.Split(values, ",")...)
	}
	return filters, nil
}
