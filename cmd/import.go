package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/alpha-grader/internal/provider"
	"github.com/sells-group/alpha-grader/internal/store"
)

var importFixturePath string

var importCmd = &cobra.Command{
	Use:   "import-fixtures",
	Short: "Load a YAML player snapshot into the Postgres snapshot tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.Store.Driver != "postgres" {
			return eris.New("import-fixtures requires store.driver postgres")
		}
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		fp, err := provider.LoadFile(importFixturePath)
		if err != nil {
			return err
		}

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ps, ok := st.(*store.PostgresStore)
		if !ok {
			return eris.New("import-fixtures requires a postgres store")
		}
		if err := provider.NewPostgres(ps.Pool()).Migrate(ctx); err != nil {
			return err
		}

		contexts := fp.Contexts()
		seasons, weeks, err := provider.Import(ctx, ps.Pool(), contexts)
		if err != nil {
			return eris.Wrap(err, "import fixtures")
		}

		zap.L().Info("import complete",
			zap.String("fixture", importFixturePath),
			zap.Int("players", len(contexts)),
			zap.Int64("season_rows", seasons),
			zap.Int64("weekly_rows", weeks),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFixturePath, "fixture", "", "path to YAML fixture (required)")
	_ = importCmd.MarkFlagRequired("fixture")
	rootCmd.AddCommand(importCmd)
}
