package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xraph/dues"
	"github.com/xraph/dues/charge"
	"github.com/xraph/dues/export"
	"github.com/xraph/dues/fee"
	"github.com/xraph/dues/period"
)

func newGenerateCmd() *cobra.Command {
	var periodFlag, fromFlag string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate charges for a period, or for every period since --from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if periodFlag != "" && fromFlag != "" {
				return fmt.Errorf("--period and --from are mutually exclusive")
			}
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.close()

			if fromFlag != "" {
				from, err := period.Parse(fromFlag)
				if err != nil {
					return err
				}
				report, err := sess.dues.GenerateRange(cmd.Context(), from)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			}

			p := sess.dues.CurrentPeriod()
			if periodFlag != "" {
				if p, err = period.Parse(periodFlag); err != nil {
					return err
				}
			}
			report, err := sess.dues.GenerateForPeriod(cmd.Context(), p)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&periodFlag, "period", "", "period to generate (YYYY-MM, default current)")
	cmd.Flags().StringVar(&fromFlag, "from", "", "generate every period from YYYY-MM through the current one")
	return cmd
}

func newPayCmd() *cobra.Command {
	var meta []string
	cmd := &cobra.Command{
		Use:   "pay <charge-id> <amount>",
		Short: "Record a payment against a charge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cid, err := dues.ParseChargeID(args[0])
			if err != nil {
				return err
			}
			amount, err := dues.ParseMoney(args[1])
			if err != nil {
				return err
			}
			metadata, err := parseMeta(meta)
			if err != nil {
				return err
			}

			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.close()

			c, err := sess.dues.RecordPayment(cmd.Context(), cid, amount, metadata)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), c)
		},
	}
	cmd.Flags().StringArrayVar(&meta, "meta", nil, "payment metadata as key=value (repeatable)")
	return cmd
}

func parseMeta(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --meta %q, want key=value", kv)
		}
		out[k] = v
	}
	return out, nil
}

func newCloseCmd() *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "close <period>",
		Short: "Close a period, surcharging unpaid charges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := period.Parse(args[0])
			if err != nil {
				return err
			}
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.close()

			rec, err := sess.dues.ClosePeriod(cmd.Context(), p, actor)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
	cmd.Flags().StringVar(&actor, "actor", os.Getenv("USER"), "who is closing the period")
	return cmd
}

func fromFlagValue(cmd *cobra.Command) (period.Period, error) {
	raw, _ := cmd.Flags().GetString("from")
	if raw == "" {
		return period.Period{}, nil
	}
	return period.Parse(raw)
}

func newSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary <member-id>",
		Short: "Show a member's outstanding debt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := fromFlagValue(cmd)
			if err != nil {
				return err
			}
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.close()

			sum, err := sess.dues.MemberSummary(cmd.Context(), args[0], from)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sum)
		},
	}
	cmd.Flags().String("from", "", "first period to include (YYYY-MM)")
	return cmd
}

func newOverviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Show association-wide collection totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, err := fromFlagValue(cmd)
			if err != nil {
				return err
			}
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.close()

			ov, err := sess.dues.PortfolioOverview(cmd.Context(), from)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ov)
		},
	}
	cmd.Flags().String("from", "", "first period to include (YYYY-MM)")
	return cmd
}

func newExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the overview and its charges to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, err := fromFlagValue(cmd)
			if err != nil {
				return err
			}
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.close()

			ctx := cmd.Context()
			ov, err := sess.dues.PortfolioOverview(ctx, from)
			if err != nil {
				return err
			}
			charges, err := sess.dues.ListCharges(ctx, charge.ListOpts{From: ov.From, To: ov.To})
			if err != nil {
				return err
			}
			data, err := export.BuildOverviewXLSX(ov, charges)
			if err != nil {
				return fmt.Errorf("build workbook: %w", err)
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d charges)\n", out, len(charges))
			return nil
		},
	}
	cmd.Flags().String("from", "", "first period to include (YYYY-MM)")
	cmd.Flags().StringVarP(&out, "out", "o", "dues-overview.xlsx", "output file")
	return cmd
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "View or change the stored fee configuration",
		RunE:  runConfigShow,
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Display the effective fee configuration",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	})

	var file string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Store fee overrides read from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			var o fee.Overrides
			if err := yaml.Unmarshal(data, &o); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}

			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.close()

			if err := sess.dues.SetConfig(cmd.Context(), &o); err != nil {
				return err
			}
			return runConfigShowWith(cmd, sess)
		},
	}
	setCmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with fee overrides")
	_ = setCmd.MarkFlagRequired("file")
	configCmd.AddCommand(setCmd)

	return configCmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.close()
	return runConfigShowWith(cmd, sess)
}

func runConfigShowWith(cmd *cobra.Command, sess *session) error {
	cfg, err := sess.dues.Config(cmd.Context())
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
