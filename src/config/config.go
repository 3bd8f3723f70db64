package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"github.com/mosaicnetworks/warroom/src/common"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultKeyfile is the default name of the file containing the
	// commander's private key for the signed variant
	DefaultKeyfile = "priv_key"

	// DefaultResultFile is the default name of the file the run's result is
	// written to
	DefaultResultFile = "result.json"
)

// Simulation variants.
const (
	VariantByzantine  = "byzantine"
	VariantSigned     = "signed"
	VariantTwoPhase   = "2pc"
	VariantThreePhase = "3pc"
)

// Default configuration values.
const (
	DefaultLogLevel        = "debug"
	DefaultVariant         = VariantByzantine
	DefaultNodes           = 4
	DefaultTraitors        = 1
	DefaultOrder           = "attack"
	DefaultPolicy          = "flip"
	DefaultMaxRounds       = 50
	DefaultVoteTimeout     = 2
	DefaultDecisionTimeout = 4
	DefaultSeed            = 42
)

// Config contains all the configuration properties of a simulation run.
type Config struct {
	// DataDir is the top-level directory containing configuration and run
	// artifacts
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile optionally routes a copy of the log output to a file.
	LogFile string `mapstructure:"log-file"`

	// Variant selects the algorithm the nodes run: byzantine, signed, 2pc
	// or 3pc.
	Variant string `mapstructure:"variant"`

	// Nodes is the total number of nodes taking part in the run, commander
	// or coordinator included.
	Nodes int `mapstructure:"nodes"`

	// Traitors is the number of faulty generals the run is dimensioned for.
	// The oral variant needs more than three times as many nodes; the
	// signed variant only needs two loyal ones.
	Traitors int `mapstructure:"traitors"`

	// TraitorIDs names the faulty generals explicitly. When empty, the
	// highest Traitors ids are faulty.
	TraitorIDs []uint32 `mapstructure:"traitor-ids"`

	// Policy is the lying strategy of faulty generals: flip, split, silent
	// or random.
	Policy string `mapstructure:"policy"`

	// Order is the order the commander issues: attack or retreat.
	Order string `mapstructure:"order"`

	// Commander is the id of the commanding general. Zero means the lowest
	// id.
	Commander uint32 `mapstructure:"commander"`

	// Coordinator is the id of the commit coordinator. Zero means the
	// lowest id.
	Coordinator uint32 `mapstructure:"coordinator"`

	// Txn names the transaction driven through the commit variants.
	Txn string `mapstructure:"txn"`

	// AbortVoters lists the participants that vote against the transaction.
	AbortVoters []uint32 `mapstructure:"abort-voters"`

	// Delays holds id:rounds pairs for participants that sit on their vote.
	Delays []string `mapstructure:"delays"`

	// Crashes holds id:round pairs for nodes that go down mid-run.
	Crashes []string `mapstructure:"crashes"`

	// MaxRounds is the round budget; a run that does not settle within it
	// is reported as not converged.
	MaxRounds int `mapstructure:"max-rounds"`

	// VoteTimeout is the coordinator's collection window, in rounds.
	VoteTimeout int `mapstructure:"vote-timeout"`

	// DecisionTimeout is the number of rounds without progress after which
	// a participant gives up waiting.
	DecisionTimeout int `mapstructure:"decision-timeout"`

	// Seed feeds every source of randomness in the run: key generation and
	// randomized traitor policies.
	Seed int64 `mapstructure:"seed"`

	// ResultFile is where the result document is written. Empty means
	// stdout.
	ResultFile string `mapstructure:"result"`

	// TraceFile optionally routes the run's trace to its own JSON document
	// instead of embedding it in the result.
	TraceFile string `mapstructure:"trace-file"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values. The commit
// options are set even when the variant is byzantine, and vice versa; each
// variant simply ignores the options of the others.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:         DefaultDataDir(),
		LogLevel:        DefaultLogLevel,
		Variant:         DefaultVariant,
		Nodes:           DefaultNodes,
		Traitors:        DefaultTraitors,
		Policy:          DefaultPolicy,
		Order:           DefaultOrder,
		MaxRounds:       DefaultMaxRounds,
		VoteTimeout:     DefaultVoteTimeout,
		DecisionTimeout: DefaultDecisionTimeout,
		Seed:            DefaultSeed,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t)
	config.logger.Level = level
	return config
}

// SetDataDir sets the top-level directory for run artifacts.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
}

// PeerKeyfile returns the full path of the file containing the private key
// of the peer with the given moniker.
func (c *Config) PeerKeyfile(moniker string) string {
	return filepath.Join(c.DataDir, moniker, DefaultKeyfile)
}

// Logger returns a formatted logrus Entry, with prefix set to "warroom".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogFile != "" {
			f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				c.logger.WithError(err).Info("Failed to open log file, using default stderr")
			} else {
				f.Close()

				pathMap := lfshook.PathMap{}
				for _, l := range logrus.AllLevels {
					pathMap[l] = c.LogFile
				}

				c.logger.Hooks.Add(lfshook.NewHook(
					pathMap,
					&logrus.TextFormatter{},
				))
			}
		}
	}
	return c.logger.WithField("prefix", "warroom")
}

// CrashSchedule parses the Crashes option.
func (c *Config) CrashSchedule() (map[uint32]int, error) {
	return ParseSchedule(c.Crashes)
}

// DelaySchedule parses the Delays option.
func (c *Config) DelaySchedule() (map[uint32]int, error) {
	return ParseSchedule(c.Delays)
}

// ParseSchedule turns id:round pairs into a map.
func ParseSchedule(pairs []string) (map[uint32]int, error) {
	res := map[uint32]int{}

	for _, pair := range pairs {
		parts := strings.Split(pair, ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed schedule entry: %s", pair)
		}

		id, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("malformed node id in %s", pair)
		}

		round, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("malformed round in %s", pair)
		}

		res[uint32(id)] = round
	}

	return res, nil
}

// DefaultDataDir return the default directory name for top-level warroom
// config based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Warroom")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Warroom")
		} else {
			return filepath.Join(home, ".warroom")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
