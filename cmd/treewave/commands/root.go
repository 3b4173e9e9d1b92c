package commands

import (
	"github.com/spf13/cobra"
	"github.com/treewave/treewave/src/config"
)

var _config = config.NewDefaultConfig()

//RootCmd is the root command for treewave
var RootCmd = &cobra.Command{
	Use:              "treewave",
	Short:            "treewave echo wave runner",
	TraverseChildren: true,
}
