package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/niktheblak/helvetic/pkg/filestore"
	"github.com/niktheblak/helvetic/pkg/measurement"
	"github.com/niktheblak/helvetic/pkg/psql"
	"github.com/niktheblak/helvetic/pkg/scale"
)

func init() {
	viper.SetDefault("storage.type", "file")
	viper.SetDefault("storage.dir", "data")

	d := scale.DefaultDefaults()
	viper.SetDefault("defaults.name", d.Name)
	viper.SetDefault("defaults.height", d.Height)
	viper.SetDefault("defaults.birthyear", d.Birthyear)
	viper.SetDefault("defaults.gender", d.Gender)
	viper.SetDefault("defaults.min_tolerance", d.MinTolerance)
	viper.SetDefault("defaults.max_tolerance", d.MaxTolerance)
}

// openStore opens the storage backend selected by storage.type
func openStore(ctx context.Context) (measurement.Store, error) {
	switch storageType := viper.GetString("storage.type"); storageType {
	case "file":
		dir := viper.GetString("storage.dir")
		logger.LogAttrs(ctx, slog.LevelInfo, "Using file storage", slog.String("dir", dir))
		return filestore.New(filestore.Config{
			Dir:    dir,
			Logger: logger,
		})
	case "postgres":
		url := viper.GetString("postgres.url")
		if url == "" {
			return nil, fmt.Errorf("postgres.url must be set when storage.type is postgres")
		}
		logger.LogAttrs(ctx, slog.LevelInfo, "Connecting to PostgreSQL")
		store, err := psql.New(ctx, psql.Config{
			URL:    url,
			Logger: logger,
		})
		if err != nil {
			return nil, err
		}
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", storageType)
	}
}

func profileDefaults() scale.Defaults {
	return scale.Defaults{
		Name:         viper.GetString("defaults.name"),
		Height:       viper.GetInt("defaults.height"),
		Birthyear:    viper.GetInt("defaults.birthyear"),
		Gender:       viper.GetString("defaults.gender"),
		MinTolerance: viper.GetInt("defaults.min_tolerance"),
		MaxTolerance: viper.GetInt("defaults.max_tolerance"),
	}
}
