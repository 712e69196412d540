package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"markupcheck/internal/config"
	"markupcheck/internal/domain/feature"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newProfilesCmd(c *cli) *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "profiles [name]",
		Short: "List feature profiles or show the rules of one",
		Long: `List the built-in feature profiles and those added with --rules, or show the
categories, rules and issue heuristics of one profile.

With --yaml the profile is printed as a rules file that can be edited and
passed back with --rules.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog(c.cfg.Check)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return listProfiles(cmd.OutOrStdout(), catalog)
			}
			p, err := catalog.Get(args[0])
			if err != nil {
				return err
			}
			if asYAML {
				return writeProfileYAML(cmd.OutOrStdout(), p)
			}
			return describeProfile(cmd.OutOrStdout(), p)
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print the profile as a rules file")

	return cmd
}

func loadCatalog(cfg config.CheckConfig) (*feature.Catalog, error) {
	catalog, err := feature.NewCatalog()
	if err != nil {
		return nil, err
	}
	if cfg.RulesFile != "" {
		if err := catalog.LoadFile(cfg.RulesFile); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

func listProfiles(w io.Writer, catalog *feature.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tRULES\tISSUES\tTHRESHOLD\tDESCRIPTION")
	for _, name := range catalog.Names() {
		p, err := catalog.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.0f%%\t%s\n", p.Name, len(p.Rules), len(p.Issues), p.PassThreshold*100, p.Description)
	}
	return tw.Flush()
}

func describeProfile(w io.Writer, p *feature.Profile) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", p.Name, p.Description)
	fmt.Fprintf(&b, "Pass threshold: %.0f%%\n", p.PassThreshold*100)

	for _, category := range p.Categories() {
		fmt.Fprintf(&b, "\n%s\n", category)
		for _, r := range p.Rules {
			if r.Category != category {
				continue
			}
			fmt.Fprintf(&b, "  - %s [%s, %s] %s", r.Name, r.Kind, r.Scope, r.Pattern)
			if r.Required {
				b.WriteString(" (required)")
			}
			if r.Min > 0 {
				fmt.Fprintf(&b, " (min %d)", r.Min)
			}
			b.WriteString("\n")
		}
	}

	if len(p.Issues) > 0 {
		b.WriteString("\nIssues\n")
		for _, is := range p.Issues {
			fmt.Fprintf(&b, "  - %s [%s, %s]: %s\n", is.Name, is.Kind, is.Severity, is.Message)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeProfileYAML(w io.Writer, p *feature.Profile) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(feature.File{Profiles: []feature.Profile{*p}}); err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return enc.Close()
}
