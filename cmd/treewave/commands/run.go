package commands

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/treewave/treewave/src/treewave"
)

//NewRunCmd returns the command that runs a wave
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run a wave over the configured topology",
		PreRunE: loadConfig,
		RunE:    runTreewave,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runTreewave(cmd *cobra.Command, args []string) error {
	engine := treewave.NewTreewave(_config)

	if err := engine.Init(); err != nil {
		_config.Logger().Error("Cannot initialize engine:", err)
		return err
	}
	defer engine.Shutdown()

	report, err := engine.RunWave()
	if err != nil {
		_config.Logger().Error("Wave failed:", err)
		return err
	}

	_config.Logger().WithFields(logrus.Fields{
		"run_id":     report.RunID,
		"initiator":  report.Initiator,
		"messages":   report.Messages,
		"broadcasts": report.Broadcasts,
		"acks":       report.Acks,
		"violations": len(report.Violations),
		"finished":   report.Finished,
	}).Info("Wave complete")

	for node, parent := range report.Tree {
		_config.Logger().WithFields(logrus.Fields{
			"node":   node,
			"parent": parent,
		}).Info("Tree edge")
	}

	engine.Serve()

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("datadir", _config.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.LogLevel, "debug, info, warn, error, fatal, panic")

	// Wave
	cmd.Flags().StringP("initiator", "i", _config.Initiator, "Override the initiator designated in graph.json")
	cmd.Flags().Int64("seed", _config.Seed, "Seed for the delivery order, 0 for time-based")
	cmd.Flags().Bool("concurrent", _config.Concurrent, "Run each node as its own goroutine")

	// Store
	cmd.Flags().Bool("store", _config.Store, "Use badgerDB to persist run reports")
	cmd.Flags().String("db", _config.DatabaseDir, "Database directory")

	// Service
	cmd.Flags().Bool("no-service", _config.NoService, "Do not serve the HTTP API")
	cmd.Flags().StringP("service-listen", "s", _config.ServiceAddr, "Listen IP:Port for HTTP service")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitly set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.SetDataDir(_config.DataDir)

	_config.Logger().WithFields(logrus.Fields{
		"DataDir":     _config.DataDir,
		"LogLevel":    _config.LogLevel,
		"Initiator":   _config.Initiator,
		"Seed":        _config.Seed,
		"Concurrent":  _config.Concurrent,
		"Store":       _config.Store,
		"DatabaseDir": _config.DatabaseDir,
		"NoService":   _config.NoService,
		"ServiceAddr": _config.ServiceAddr,
	}).Debug("RUN")

	return nil
}

//Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// cmd.Flags() includes flags from this command and all persistent flags
	// from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	viper.SetConfigName("treewave")      // name of config file (without extension)
	viper.AddConfigPath(_config.DataDir) // search root directory

	if err := viper.ReadInConfig(); err == nil {
		_config.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Logger().Debugf("No config file found in: %s", _config.DataDir)
	} else {
		return err
	}

	return viper.Unmarshal(_config)
}
