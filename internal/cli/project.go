package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/existflow/oahu/internal/model"
	"github.com/existflow/oahu/internal/store"
)

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Browse cached projects",
	}
	cmd.AddCommand(newProjectYearsCmd())
	cmd.AddCommand(newProjectCreditsCmd())
	cmd.AddCommand(newProjectAppsCmd())
	return cmd
}

func newProjectYearsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "years",
		Short: "List cached projects grouped by release year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			years, groups, err := store.NewProjects(a.repo).ByYear(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(years) == 0 {
				fmt.Fprintln(out, "No projects with a release date.")
				return nil
			}
			for _, y := range years {
				printHeader(out, fmt.Sprint(y))
				for _, p := range groups[y] {
					fmt.Fprintf(out, "  %-26s %s\n", p.ID, recordLabel(p))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

func newProjectCreditsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "credits <project> <job>",
		Short: "Show who is credited for a job, e.g. Director",
		Long: `Show who is credited for a job on a project. The project is given by id
or slug.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := lookupProject(cmd, store.NewProjects(a.repo), args[0])
			if err != nil {
				return err
			}
			names := p.CreditsByJob(args[1])
			if len(names) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No %s credited on %s\n", args[1], p.ID)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))
			return nil
		},
	}
}

func newProjectAppsCmd() *cobra.Command {
	var liveOnly bool

	cmd := &cobra.Command{
		Use:   "apps <project>",
		Short: "List the cached apps of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := lookupProject(cmd, store.NewProjects(a.repo), args[0])
			if err != nil {
				return err
			}
			apps, err := store.For[*model.App](a.repo).FindAllBy(cmd.Context(), "project_id", p.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			now := time.Now()
			printHeader(out, fmt.Sprintf("apps of %s", p.ID))
			for _, app := range apps {
				live := app.Live(now)
				if liveOnly && !live {
					continue
				}
				state := MutedStyle.Render("offline")
				if live {
					state = SuccessStyle.Render("live")
				}
				fmt.Fprintf(out, "  %-26s %-8s %s\n", app.ID, state, recordLabel(app))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&liveOnly, "live", false, "Only show apps that are live now")
	return cmd
}

// lookupProject finds a cached project by id, then by slug
func lookupProject(cmd *cobra.Command, projects store.Projects, ref string) (*model.Project, error) {
	if p, err := projects.Get(cmd.Context(), ref); err == nil {
		return p, nil
	}
	p, err := projects.BySlug(cmd.Context(), ref)
	if err != nil {
		return nil, fmt.Errorf("project %q is not cached", ref)
	}
	return p, nil
}
