package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dgnsrekt/recite/internal/synth"
	"github.com/dgnsrekt/recite/utils"
)

var (
	showPassage int

	recitersCmd = &cobra.Command{
		Use:     "reciters [QUERY]",
		Aliases: []string{"voices"},
		Short:   "List the available reciters",
		Long: paragraph(fmt.Sprintf("\n%s the built-in reciters. With QUERY, only the reciter "+
			"that --reciter QUERY would select is shown.", keyword("List"))),
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a := newApp(cfg)
			catalog := a.catalog
			if len(args) == 1 {
				r, err := catalog.Find(args[0])
				if err != nil {
					return err //nolint:wrapcheck
				}
				catalog = synth.Catalog{r}
			}

			current, _ := a.Reciter()
			for _, r := range catalog {
				marker := "  "
				if r.ID == current.ID {
					marker = keyword("* ")
				}
				fmt.Printf("%s%-14s %s %s\n", marker, r.ID, r.Name, faint("("+r.Voice+")"))
			}
			return nil
		},
	}

	passagesCmd = &cobra.Command{
		Use:   "passages [QUERY]",
		Short: "List the passages in the corpus",
		Long: paragraph(fmt.Sprintf("\n%s the passages of the configured corpus, optionally only those "+
			"whose name contains QUERY. With --show, print one passage as Markdown; "+
			"the output can be saved as a .md corpus.", keyword("List"))),
		Example: paragraph("recite passages\nrecite passages nas\nrecite passages --show 112 > ikhlas.md"),
		Args:    cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a := newApp(cfg)
			if showPassage > 0 {
				p, err := a.Passage(showPassage)
				if err != nil {
					return err
				}
				return printMarkdown(p.Markdown())
			}

			l, err := a.Library()
			if err != nil {
				return err
			}

			var query string
			if len(args) == 1 {
				query = strings.ToLower(args[0])
			}

			for _, p := range l.Passages() {
				if query != "" && !strings.Contains(strings.ToLower(p.Name), query) {
					continue
				}
				var first string
				if len(p.Units) > 0 {
					first = utils.Truncate(p.Units[0].Text, 40)
				}
				fmt.Printf("%4d  %-18s %s  %s\n", p.ID, p.Name, faint(fmt.Sprintf("%3d verses", p.UnitCount())), first)
			}
			return nil
		},
	}
)

func init() {
	passagesCmd.Flags().IntVar(&showPassage, "show", 0, "print the verses of this passage")
}

// printMarkdown renders md on a terminal and writes it unchanged otherwise.
func printMarkdown(md string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec
		fmt.Print(md)
		return nil
	}

	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 { //nolint:gosec
		width = min(w, 120)
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithColorProfile(lipgloss.ColorProfile()),
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
		glamour.WithPreservedNewLines(),
	)
	if err != nil {
		return fmt.Errorf("unable to create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("unable to render markdown: %w", err)
	}
	fmt.Print(out)
	return nil
}
