package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/lorrc/service-desk-pki/internal/adapters/secondary/spreadsheet"
	"github.com/lorrc/service-desk-pki/internal/config"
	"github.com/lorrc/service-desk-pki/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-pki/internal/core/errors"
	"github.com/lorrc/service-desk-pki/internal/core/ports"
)

// options are the flags and settings shared by every subcommand.
type options struct {
	format    string
	timezone  string
	asJSON    bool
	now       func() time.Time
	scorecard domain.Scorecard
}

func newRootCmd() *cobra.Command {
	opts := &options{now: time.Now}

	root := &cobra.Command{
		Use:   "pkictl",
		Short: "Compute service desk PKI figures from a ticket spreadsheet",
		Long: "Compute service desk PKI figures from a ticket spreadsheet.\n\n" +
			"Scoring follows the same PKI_WEIGHT_*, PKI_SERVICE_THRESHOLD and PKI_ROLLUP_YEARS\n" +
			"settings as the API, read from the environment or a .env file.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			scorecard, err := config.LoadPKI()
			if err != nil {
				return err
			}
			opts.scorecard = scorecard
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.format, "format", "", "file format (xlsx or csv); detected from the extension when empty")
	flags.StringVar(&opts.timezone, "timezone", "UTC", "IANA time zone for timestamps without an offset")
	flags.BoolVar(&opts.asJSON, "json", false, "print JSON instead of a table")

	root.AddCommand(
		newReportCmd(opts),
		newRollupCmd(opts),
		newServiceCmd(opts),
	)
	return root
}

func (o *options) location() (*time.Location, error) {
	loc, err := time.LoadLocation(o.timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", o.timezone, err)
	}
	return loc, nil
}

// loadTickets decodes every ticket of the spreadsheet at path.
func (o *options) loadTickets(path string) ([]*domain.Ticket, error) {
	hint := o.format
	if hint == "" {
		hint = path
	}
	format, err := ports.ParseFileFormat(hint)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	loc, err := o.location()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tickets, err := spreadsheet.NewCodec(loc).Decode(f, format)
	if err != nil {
		var ve *apperrors.ValidationErrors
		if errors.As(err, &ve) {
			return nil, fmt.Errorf("%s: %w\n%s", path, err, describe(ve))
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tickets, nil
}

// describe lists validation failures one per line, sorted by key.
func describe(ve *apperrors.ValidationErrors) string {
	keys := lo.Keys(ve.Errors)
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "  %s: %s\n", key, strings.Join(ve.Errors[key], "; "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func percent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate*100)
}
