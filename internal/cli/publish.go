package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"artipub/internal/credentials"
	"artipub/internal/logging"
	"artipub/internal/maven"
	"artipub/internal/project"
	"artipub/internal/publish"
	"artipub/internal/storage"
)

func publishCmd(opts *globalOptions) *cobra.Command {
	var projectPath string
	var properties []string
	var repository string
	var dryRun bool

	c := &cobra.Command{
		Use:   "publish",
		Short: "Publish the project's artifacts, descriptors and checksums",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.L()

			overrides, err := project.ParseOverrides(properties)
			if err != nil {
				return err
			}
			p, err := project.Load(ctx, projectPath, overrides)
			if err != nil {
				return err
			}
			if err := publish.Validate(p.Publication); err != nil {
				return err
			}
			repo, err := p.Repository(repository)
			if err != nil {
				return err
			}

			var store publish.ObjectStore
			var loc storage.Location
			if dryRun {
				if loc, err = storage.ParseURL(repo.URL); err != nil {
					return err
				}
				store = publish.NewMemoryStore()
			} else {
				resolved, err := credentials.Resolve(credentials.Request{
					Repository: repo.Name,
					Explicit:   repo.Credentials,
					Profile:    repo.Profile,
				})
				if err != nil {
					return err
				}
				log.Debug().Str("repository", repo.Name).Str("source", resolved.Source).Msg("credentials resolved")

				minioStore, l, err := storage.OpenRepository(ctx, repo, resolved.Credentials(), nil)
				if err != nil {
					return err
				}
				store, loc = minioStore, l
			}

			publisher := publish.New(store, maven.Layout{Prefix: loc.Prefix})
			res, err := publisher.Publish(ctx, p.Publication)
			if err != nil {
				return fmt.Errorf("publish %s to '%s': %w", p.Publication.Coordinates, repo.Name, err)
			}

			verb := "Published"
			if dryRun {
				verb = "Would publish"
			}
			fmt.Fprintf(opts.stdout, "%s %s to '%s' (s3://%s)\n", verb, res.Coordinates, repo.Name, loc.Bucket)
			for _, key := range res.Keys {
				fmt.Fprintf(opts.stdout, "  %s\n", key)
			}
			return nil
		},
	}

	c.Flags().StringVarP(&projectPath, "project", "p", project.DefaultFileName, "Project file")
	c.Flags().StringArrayVarP(&properties, "property", "P", nil, "Override a project property (key=value), repeatable")
	c.Flags().StringVarP(&repository, "repository", "r", "", "Repository name (optional when only one is declared)")
	c.Flags().BoolVar(&dryRun, "dry-run", false, "Render every object without contacting the repository")
	return c
}
