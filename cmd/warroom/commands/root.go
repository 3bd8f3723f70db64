package commands

import (
	"github.com/mosaicnetworks/warroom/src/config"
	"github.com/spf13/cobra"
)

var (
	_config = config.NewDefaultConfig()
)

//RootCmd is the root command for warroom
var RootCmd = &cobra.Command{
	Use:              "warroom",
	Short:            "byzantine agreement and atomic commit scenarios",
	TraverseChildren: true,
}
