// Package host builds the roller shared by the command binaries.
package host

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/louisbranch/dicenotation"
	"github.com/louisbranch/dicenotation/internal/core/limit"
	"github.com/louisbranch/dicenotation/internal/storage/sqlite"
)

// Config holds the settings every command shares.
type Config struct {
	Limits    limit.Config
	Locale    string `env:"DICENOTATION_LOCALE"     envDefault:"en-US"`
	HistoryDB string `env:"DICENOTATION_HISTORY_DB"`
}

// RegisterFlags binds the shared settings to fs, keeping the loaded values
// as defaults.
func RegisterFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "language of detail text and errors (en-US, pt-BR)")
	fs.StringVar(&cfg.HistoryDB, "history", cfg.HistoryDB, "sqlite path for the roll log (disabled when empty)")
	fs.Uint64Var(&cfg.Limits.MaxItemCount, "max-items", cfg.Limits.MaxItemCount, "maximum number and dice items per expression")
	fs.Uint64Var(&cfg.Limits.MaxDiceSides, "max-sides", cfg.Limits.MaxDiceSides, "maximum sides of a single dice")
	fs.Uint64Var(&cfg.Limits.MaxRollTimes, "max-rolls", cfg.Limits.MaxRollTimes, "maximum dice rolled per expression")
	fs.Uint64Var(&cfg.Limits.MaxNumberMagnitude, "max-number", cfg.Limits.MaxNumberMagnitude, "maximum magnitude of a number item or target")
}

// NewRoller opens the roll log when configured and returns a roller using
// cfg. The returned close function releases the log.
func NewRoller(cfg Config) (*dicenotation.Roller, func() error, error) {
	opts := []dicenotation.RollerOption{
		dicenotation.WithConfig(cfg.Limits),
		dicenotation.WithLocale(cfg.Locale),
	}

	closeFn := func() error { return nil }
	if path := strings.TrimSpace(cfg.HistoryDB); path != "" {
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open roll history: %w", err)
		}
		log.Printf("roll history at %s", path)
		opts = append(opts, dicenotation.WithRollLog(store))
		closeFn = store.Close
	}
	return dicenotation.NewRoller(opts...), closeFn, nil
}
