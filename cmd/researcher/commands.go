package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shpitdev/entity-research/internal/apollo"
	"github.com/shpitdev/entity-research/internal/app"
	"github.com/shpitdev/entity-research/internal/config"
	"github.com/shpitdev/entity-research/internal/research"
	"github.com/shpitdev/entity-research/internal/version"
)

func newResearchCmd(f *rootFlags) *cobra.Command {
	var (
		entityTypeRaw string
		resolve       bool
		asJSON        bool
	)
	cmd := &cobra.Command{
		Use:   "research [question]",
		Short: "Run one research question",
		Long: `Searches the web for the question, keeps documents the model grades as
relevant (rewriting the question once if none are), and extracts entities.

With --resolve, companies are matched through Apollo and people are keyed, and
both are written to the configured sink.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType, err := research.ParseEntityType(entityTypeRaw)
			if err != nil {
				return configError(err)
			}
			question := strings.Join(args, " ")

			cfg, err := f.load(cmd)
			if err != nil {
				return configError(err)
			}
			reqs := []config.Requirement{config.RequireResearch}
			if resolve && entityType == research.EntityCompanies {
				reqs = append(reqs, config.RequireApollo)
			}
			if err := cfg.Validate(reqs...); err != nil {
				return configError(err)
			}

			st, err := newStack(cmd.Context(), cfg, true, f.csvDir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			switch {
			case resolve && entityType == research.EntityCompanies:
				recs, err := st.service.FindCompanies(ctx, question)
				if err != nil {
					return runError("research", err)
				}
				return writeJSON(out, recs)
			case resolve:
				recs, err := st.service.FindPeople(ctx, question)
				if err != nil {
					return runError("research", err)
				}
				return writeJSON(out, recs)
			}

			res, err := st.service.Research(ctx, question, entityType)
			if err != nil {
				return runError("research", err)
			}
			if asJSON {
				return writeJSON(out, res.Entities)
			}
			writeEntities(out, res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&entityTypeRaw, "type", "t", string(research.EntityCompanies), "Entity type: companies or people")
	cmd.Flags().BoolVar(&resolve, "resolve", false, "Resolve through Apollo (companies) and write to the sink")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entities as JSON")
	return cmd
}

func newBatchCmd(f *rootFlags) *cobra.Command {
	var (
		inputPath     string
		outputPath    string
		entityTypeRaw string
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Research every question in a CSV",
		Long: `Reads the "question" column of --input, runs each question independently on
a bounded worker pool, and writes one CSV row per extracted entity (or one row
per question that found nothing or failed) to --output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entityType, err := research.ParseEntityType(entityTypeRaw)
			if err != nil {
				return configError(err)
			}
			cfg, err := f.load(cmd)
			if err != nil {
				return configError(err)
			}
			if err := cfg.Validate(config.RequireResearch); err != nil {
				return configError(err)
			}

			inF, err := os.Open(inputPath)
			if err != nil {
				return runError("batch", err)
			}
			questions, err := app.ReadQuestionsCSV(inF)
			_ = inF.Close()
			if err != nil {
				return runError("batch", fmt.Errorf("read %s: %w", inputPath, err))
			}

			st, err := newStack(cmd.Context(), cfg, true, f.csvDir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer st.Close()

			start := time.Now()
			rows, err := st.service.RunBatch(cmd.Context(), questions, entityType, cfg.Worker.Options())
			if err != nil {
				return runError("batch", err)
			}

			outF, err := os.Create(outputPath)
			if err != nil {
				return runError("batch", err)
			}
			if err := app.WriteCSV(outF, rows); err != nil {
				_ = outF.Close()
				return runError("batch", err)
			}
			if err := outF.Close(); err != nil {
				return runError("batch", err)
			}
			st.logger.Printf("batch output written: path=%s rows=%d totalDuration=%s", outputPath, len(rows), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVar(&inputPath, "input", "", "Input CSV file path (must include a 'question' column)")
	cmd.Flags().StringVar(&outputPath, "output", "", "Output CSV file path")
	cmd.Flags().StringVarP(&entityTypeRaw, "type", "t", string(research.EntityCompanies), "Entity type: companies or people")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newCompanyCmd(f *rootFlags) *cobra.Command {
	var q apollo.CompanyQuery
	cmd := &cobra.Command{
		Use:   "company",
		Short: "Look a company up in Apollo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return configError(err)
			}
			if err := cfg.Validate(config.RequireApollo); err != nil {
				return configError(err)
			}
			st, err := newStack(cmd.Context(), cfg, false, f.csvDir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer st.Close()

			rec, err := st.service.LookupCompany(cmd.Context(), q)
			if err != nil {
				return runError("company lookup", err)
			}
			return writeJSON(cmd.OutOrStdout(), rec)
		},
	}
	cmd.Flags().StringVar(&q.Name, "name", "", "Organization name")
	cmd.Flags().StringSliceVar(&q.Locations, "location", nil, "Headquarters locations to include")
	cmd.Flags().StringSliceVar(&q.NotLocations, "not-location", nil, "Headquarters locations to exclude")
	cmd.Flags().StringSliceVar(&q.KeywordTags, "keyword", nil, "Keyword tags")
	cmd.Flags().StringSliceVar(&q.EmployeeRanges, "employees", nil, `Employee ranges such as "1,10" or "250,500"`)
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newPeopleCmd(f *rootFlags) *cobra.Command {
	var q apollo.PeopleQuery
	cmd := &cobra.Command{
		Use:   "people",
		Short: "Search people in Apollo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return configError(err)
			}
			if err := cfg.Validate(config.RequireApollo); err != nil {
				return configError(err)
			}
			st, err := newStack(cmd.Context(), cfg, false, f.csvDir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer st.Close()

			people, err := st.service.SearchPeople(cmd.Context(), q)
			if err != nil {
				return runError("people search", err)
			}
			return writeJSON(cmd.OutOrStdout(), people)
		},
	}
	fl := cmd.Flags()
	fl.StringSliceVar(&q.PersonTitles, "title", nil, "Job titles")
	fl.StringVar(&q.Keywords, "keywords", "", "Free-text keywords")
	fl.StringSliceVar(&q.PersonLocations, "location", nil, "Person locations")
	fl.StringSliceVar(&q.PersonSeniorities, "seniority", nil, "Seniorities such as owner, c_suite, vp")
	fl.StringSliceVar(&q.EmailStatuses, "email-status", nil, "Email statuses such as verified")
	fl.StringSliceVar(&q.OrganizationDomains, "domain", nil, "Employer domains")
	fl.StringSliceVar(&q.OrganizationLocations, "org-location", nil, "Employer headquarters locations")
	fl.StringSliceVar(&q.OrganizationIDs, "org-id", nil, "Apollo organization ids")
	fl.StringSliceVar(&q.EmployeeRanges, "employees", nil, "Employer size ranges")
	fl.IntVar(&q.Page, "page", 1, "Result page")
	fl.IntVar(&q.PerPage, "per-page", 0, "Results per page (0 uses the client default)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "researcher version %s\n", version.Current)
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeEntities(w io.Writer, res research.Result) {
	if len(res.Entities) == 0 {
		_, _ = fmt.Fprintln(w, "No entities found.")
		return
	}
	for i, e := range res.Entities {
		_, _ = fmt.Fprintf(w, "  [%d] %s\n", i+1, e.Name())
		switch {
		case e.Company != nil:
			if e.Company.WebsiteURL != "" {
				_, _ = fmt.Fprintf(w, "      %s\n", e.Company.WebsiteURL)
			}
			if e.Company.LinkedInURL != "" {
				_, _ = fmt.Fprintf(w, "      %s\n", e.Company.LinkedInURL)
			}
		case e.Person != nil:
			if e.Person.Title != "" {
				_, _ = fmt.Fprintf(w, "      %s\n", e.Person.Title)
			}
			if e.Person.LinkedInURL != "" {
				_, _ = fmt.Fprintf(w, "      %s\n", e.Person.LinkedInURL)
			}
		}
	}
}
