package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"artipub/internal/credentials"
	"artipub/internal/domain"
	"artipub/internal/maven"
	"artipub/internal/project"
	"artipub/internal/publish"
	"artipub/internal/storage"
)

func verifyCmd(opts *globalOptions) *cobra.Command {
	var projectPath string
	var properties []string
	var repository string
	var classifier string
	var extension string

	c := &cobra.Command{
		Use:   "verify group:artifact:version",
		Short: "Download a published artifact and check every checksum file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			coords, err := domain.ParseCoordinates(args[0])
			if err != nil {
				return err
			}
			overrides, err := project.ParseOverrides(properties)
			if err != nil {
				return err
			}
			p, err := project.Load(ctx, projectPath, overrides)
			if err != nil {
				return err
			}
			repo, err := p.Repository(repository)
			if err != nil {
				return err
			}
			resolved, err := credentials.Resolve(credentials.Request{
				Repository: repo.Name,
				Explicit:   repo.Credentials,
				Profile:    repo.Profile,
			})
			if err != nil {
				return err
			}
			store, loc, err := storage.OpenRepository(ctx, repo, resolved.Credentials(), nil)
			if err != nil {
				return err
			}

			layout := maven.Layout{Prefix: loc.Prefix}
			failed := 0
			for _, key := range []string{layout.ArtifactKey(coords, classifier, extension), layout.POMKey(coords)} {
				check, err := publish.VerifyObject(ctx, store, key)
				if err != nil {
					return fmt.Errorf("verify %s: %w", key, err)
				}
				fmt.Fprintln(opts.stdout, check)
				if !check.OK() {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("verification of %s failed (%d file(s))", coords, failed)
			}
			return nil
		},
	}

	c.Flags().StringVarP(&projectPath, "project", "p", project.DefaultFileName, "Project file declaring the repository")
	c.Flags().StringArrayVarP(&properties, "property", "P", nil, "Override a project property (key=value), repeatable")
	c.Flags().StringVarP(&repository, "repository", "r", "", "Repository name (optional when only one is declared)")
	c.Flags().StringVar(&classifier, "classifier", "", "Classifier of the artifact to verify")
	c.Flags().StringVar(&extension, "extension", "jar", "Extension of the artifact to verify")
	return c
}
