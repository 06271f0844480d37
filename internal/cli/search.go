package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/catalog"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
)

type searchOptions struct {
	term       string
	semester   string
	program    string
	classTrack string
	department string
	courseType string
	pageSize   int
	pages      int
}

func newSearchCmd(global *globalOptions) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "List catalog subjects matching a filter",
		Long: `Search the subject catalog the same way the equivalence panel does:
pages are accumulated in order and a subject seen on an earlier page is listed once.`,
		Example: `  # First two pages of odd-semester subjects in Informatika
  equivctl search --semester GANJIL --program Informatika --pages 2

  # Free-text search on code or name
  equivctl search --term "basis data" --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.pages < 1 {
				return fmt.Errorf("--pages must be at least 1")
			}
			logr := global.logger()
			defer logr.Sync() //nolint:errcheck

			acc := catalog.NewAccumulator(cmd.Context(), global.client(logr), catalog.Options{
				PageSize: opts.pageSize,
				Dispatch: func(task func()) { task() },
				Logger:   logr,
			})
			defer acc.Close()

			for key, value := range opts.filter() {
				acc.SetFilterField(key, value)
			}
			acc.Start()
			for loaded := 1; loaded < opts.pages; loaded++ {
				if !acc.LoadMore() {
					break
				}
			}

			view := acc.View()
			if view.LastError != "" {
				return fmt.Errorf("catalog search failed: %s", view.LastError)
			}
			if global.asJSON {
				return writeJSON(cmd.OutOrStdout(), view)
			}
			return printSubjects(cmd, view)
		},
	}

	cmd.Flags().StringVar(&opts.term, "term", "", "Free-text search on subject code or name")
	cmd.Flags().StringVar(&opts.semester, "semester", "", "Semester (GANJIL or GENAP)")
	cmd.Flags().StringVar(&opts.program, "program", "", "Study program")
	cmd.Flags().StringVar(&opts.classTrack, "class-track", "", "Class track")
	cmd.Flags().StringVar(&opts.department, "department", "", "Department")
	cmd.Flags().StringVar(&opts.courseType, "course-type", "", "Course type")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", 20, "Subjects per page")
	cmd.Flags().IntVar(&opts.pages, "pages", 1, "Number of pages to load")

	return cmd
}

func (o *searchOptions) filter() models.FilterCriteria {
	return models.FilterCriteria{}.
		With(models.FilterCode, o.term).
		With(models.FilterSemester, o.semester).
		With(models.FilterProgram, o.program).
		With(models.FilterClassTrack, o.classTrack).
		With(models.FilterDepartment, o.department).
		With(models.FilterCourseType, o.courseType)
}

func printSubjects(cmd *cobra.Command, view catalog.View) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCODE\tNAME\tSKS\tSEMESTER")
	for _, s := range view.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", s.ID, s.Code, s.Name, s.Credits, s.Semester)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	more := ""
	if view.HasMore {
		more = ", more available"
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d subjects (page %d/%d%s)\n", len(view.Items), view.Total, view.Page, view.LastPage, more)
	return err
}
