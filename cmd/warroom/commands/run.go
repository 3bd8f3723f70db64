package commands

import (
	"fmt"
	"io/ioutil"

	"github.com/mosaicnetworks/warroom/src/sim"
	"github.com/mosaicnetworks/warroom/src/warroom"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//NewRunCmd returns the command that runs a scenario
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run scenario",
		PreRunE: loadConfig,
		RunE:    runScenario,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runScenario(cmd *cobra.Command, args []string) error {
	engine := warroom.NewWarroom(_config)

	if err := engine.Init(); err != nil {
		_config.Logger().Error("Cannot initialize engine:", err)
		return err
	}

	res, err := engine.Run()
	if err != nil {
		_config.Logger().Error("Scenario failed:", err)
		return err
	}

	return writeResult(res)
}

func writeResult(res *sim.Result) error {
	if _config.TraceFile != "" {
		raw, err := res.Trace.Marshal()
		if err != nil {
			return err
		}

		if err := ioutil.WriteFile(_config.TraceFile, raw, 0644); err != nil {
			return err
		}

		_config.Logger().Infof("Trace written to: %s", _config.TraceFile)

		// the trace lives in its own file, keep the result document small
		res.Trace = nil
	}

	raw, err := res.Marshal()
	if err != nil {
		return err
	}

	if _config.ResultFile == "" {
		fmt.Println(string(raw))
		return nil
	}

	if err := ioutil.WriteFile(_config.ResultFile, raw, 0644); err != nil {
		return err
	}

	_config.Logger().Infof("Result written to: %s", _config.ResultFile)

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("datadir", _config.DataDir, "Top-level directory for configuration and run artifacts")
	cmd.Flags().String("log", _config.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.LogFile, "Also write the log output to this file")

	// Scenario
	cmd.Flags().StringP("variant", "v", _config.Variant, "byzantine, signed, 2pc or 3pc")
	cmd.Flags().IntP("nodes", "n", _config.Nodes, "Total number of nodes")
	cmd.Flags().Int("max-rounds", _config.MaxRounds, "Round budget for the run")
	cmd.Flags().Int64("seed", _config.Seed, "Seed for key generation and randomized policies")
	cmd.Flags().String("result", _config.ResultFile, "File the result document is written to, stdout if empty")
	cmd.Flags().String("trace-file", _config.TraceFile, "File the trace is written to, embedded in the result if empty")

	// Generals
	cmd.Flags().IntP("traitors", "t", _config.Traitors, "Number of faulty generals")
	cmd.Flags().UintSlice("traitor-ids", nil, "Explicit ids of the faulty generals")
	cmd.Flags().String("policy", _config.Policy, "Traitor policy: flip, split, silent or random")
	cmd.Flags().String("order", _config.Order, "Commander's order: attack or retreat")
	cmd.Flags().Uint32("commander", _config.Commander, "Id of the commanding general, lowest id if 0")

	// Commit
	cmd.Flags().Uint32("coordinator", _config.Coordinator, "Id of the coordinator, lowest id if 0")
	cmd.Flags().String("txn", _config.Txn, "Name of the transaction to commit")
	cmd.Flags().UintSlice("abort-voters", nil, "Ids of participants that vote abort")
	cmd.Flags().StringSlice("delays", nil, "id:rounds pairs of participants that sit on their vote")
	cmd.Flags().Int("vote-timeout", _config.VoteTimeout, "Rounds the coordinator waits for votes")
	cmd.Flags().Int("decision-timeout", _config.DecisionTimeout, "Rounds a participant waits without progress")

	// Faults
	cmd.Flags().StringSlice("crashes", nil, "id:round pairs of nodes that crash mid-run")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	_config.SetDataDir(_config.DataDir)

	logFields := logrus.Fields{
		"DataDir":         _config.DataDir,
		"LogLevel":        _config.LogLevel,
		"Variant":         _config.Variant,
		"Nodes":           _config.Nodes,
		"MaxRounds":       _config.MaxRounds,
		"Seed":            _config.Seed,
		"Traitors":        _config.Traitors,
		"Policy":          _config.Policy,
		"Order":           _config.Order,
		"VoteTimeout":     _config.VoteTimeout,
		"DecisionTimeout": _config.DecisionTimeout,
	}

	if len(_config.Crashes) > 0 {
		logFields["Crashes"] = _config.Crashes
	}

	if len(_config.Delays) > 0 {
		logFields["Delays"] = _config.Delays
	}

	_config.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/warroom.toml (.json, .yaml also work)
	viper.SetConfigName("warroom")       // name of config file (without extension)
	viper.AddConfigPath(_config.DataDir) // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Logger().Debugf("No config file found in: %s", _config.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
